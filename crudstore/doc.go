/*
Package crudstore is a thread-safe, in-memory store of records
that can be saved as a snapshot to a file, S3 bucket, SFTP server
or HTTP endpoint (see package snapshot).

A record type must implement Entity:

	type Bus struct {
		ID    uuid.UUID `json:"id"`
		Model string    `json:"model"`
	}

	func (b *Bus) GetID() uuid.UUID   { return b.ID }
	func (b *Bus) SetID(id uuid.UUID) { b.ID = id }

	func cloneBus(b *Bus) *Bus {
		res := *b
		return &res
	}

	store, err := crudstore.Open(ctx, crudstore.Config[*Bus]{
		Path:  "buses.json.zst",
		Clone: cloneBus,
	})
	store.Create(&Bus{Model: "Volvo"})
	err = store.Save(ctx)

Config.Clone matters for pointer records. Without it the store and its
callers share the same *Bus values, and a caller changing a record
races with Save.

Reads take a shared lock, changes take an exclusive lock. Save only
holds the lock while copying records so it never blocks other operations
while doing I/O. Every save writes a full snapshot.
*/
package crudstore
