package tempstore

/*
TempStore holds the objects a transaction modifies between the moment they are stored and the moment the transaction
commits with its final tid. It is the staging area of a two-phase commit MVCC object store: states are written once,
read back at most a few times, and then streamed to permanent storage in the order they were written.

Building TempStore produces one executable, tempstore-bench, which stages and flushes synthetic transactions.

The `tempstore` module is organized into the following packages:

* `kv/tempstore`: the staging buffer. A byte ledger that moves from memory to a temporary file past a size
  threshold, an oid index over it, ordered iteration, a diagnostic dump and a pool of reusable buffers.
* `kv/flush`: writes a buffer's objects to permanent storage under the commit tid.
* `kv/storage`: the permanent storage interface, with an in-memory and a badger implementation.
* `kv/config`: configuration, loaded from toml.
* `kv/util`: key encoding, badger helpers, byte sizes and file helpers.
*/
