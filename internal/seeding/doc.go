// Package seeding runs the distribution session: it synthesizes a
// ".torrent" metadata file next to every content file, opens one BitTorrent
// client on the first free port of a range, registers every item and then
// reports aggregate status until its context is canceled.
//
// The session is blocking by design and is meant to run on a dedicated
// goroutine. The peer protocol is github.com/anacrolix/torrent.
package seeding
