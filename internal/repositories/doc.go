// package repositories provides the persistence layer over the SQLite mirror.
//
// SongRepository owns the durable songs table and enforces the keyed-upsert
// and unranking semantics; RunRepository records the outcome of each
// reconciliation pass. All multi-row writes are transactional.
package repositories
