// Package storage persists the chore snapshot.
//
// Every driver stores the whole document on Save and returns it on Load:
//   - "file": pretty-printed JSON, replaced atomically (tmp + rename)
//   - "sqlite": one row per chat in a SQLite database (modernc, pure Go)
//   - "badger": one key per chat in a Badger directory
//   - "memory": process memory only, for tests and dry runs
package storage
