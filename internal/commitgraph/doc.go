// Package commitgraph reads git commit-graph files.
//
// A commit-graph file caches per-commit ancestry metadata so that history
// walks do not need to inflate and parse every commit object. The file
// has the layout:
//   - An 8-byte header: the 'CGPH' signature, a version byte (= 1), a hash
//     version byte (= 1 for SHA-1), the number of chunks and the number of
//     base graphs.
//   - A chunk lookup table of (4-byte id, 8-byte offset) pairs terminated by
//     an entry with a zero id.
//   - The OIDF fanout, the OIDL sorted object id list, the CDAT commit data
//     records and, for octopus merges, the EDGE extra edges list.
//   - A trailing checksum, which this package does not verify.
//
// All numbers are in network order.
//
// Every value in this package is read-only once constructed, so a File and
// any number of CommitData views and ParentIterators may be used from
// multiple goroutines at the same time. A File must stay open for as long
// as any view into it is in use.
//
// Refer to:
// https://github.com/git/git/blob/master/Documentation/gitformat-commit-graph.txt
package commitgraph
