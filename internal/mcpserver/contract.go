package mcpserver

// EntryModel documents the output of iterate_entries for LLM consumers.
const EntryModel = `# Enigma Entry Model

A document is addressed by cells. A cell is one (staff, measure) pair and
holds up to four layers (0-3). Each layer points to a frame: a run of
entries linked from a start entry to an end entry. An entry is a note,
chord or rest.

## Times

All times are exact fractions of a whole note written as "n/d" (or "n"
when whole). A quarter is "1/4"; a triplet eighth is "1/12".

- ` + "`elapsed`" + `: time from the start of the cell to the entry. A frame may
  start late (pickup or mid-measure entry), in which case the first entry's
  elapsed is that offset instead of 0.
- ` + "`actual`" + `: the nominal duration multiplied by the ratio of every tuplet
  active at the entry. Nested tuplets multiply.
- ` + "`end`" + `: elapsed + actual.

## Fields

| field | meaning |
|---|---|
| layer | layer index 0-3 |
| seq | position within the layer, from 0 |
| entnum | entry number, unique in the document |
| is_note | false for rests |
| duration | nominal duration in EDU (4096 per whole note) |
| elapsed | see Times |
| actual | see Times |
| end | see Times |

## Tuplets

A tuplet starting at an entry stays active until the actual time consumed
inside it reaches its reference duration (reference number x reference
unit). A 3:2 eighth triplet covers one quarter of actual time, so it ends
after three triplet eighths.

## Issues

A document whose entry chain is broken (a missing start or next entry, a
chain that never reaches the frame's end entry, a loop) is still
traversed up to the break. The break is recorded as an issue, readable
with get_issues.
`
