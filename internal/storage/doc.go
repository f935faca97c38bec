// Package storage manages the on-disk output tree of a run.
//
// Output is grouped into partitions (upcoming_events, past_events), each holding
// numbered event directories (event1, event2, ...) with an event_details.txt,
// an optional poster.jpg and an optional event.ics. Partitions are wiped and
// recreated at the start of every run so no file from an earlier run survives.
package storage
