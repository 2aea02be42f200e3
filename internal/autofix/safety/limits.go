// Package safety declares the engine's hard ceilings. These are compile-time
// invariants enforced at every boundary; policy can tighten behavior but can
// never raise any value here.
package safety

const (
	// MaxPatchBytes caps the serialized size of a single patch.
	MaxPatchBytes = 1 << 20 // 1 MiB

	// MaxFileBytes caps the post-image written to any target file.
	MaxFileBytes = 10 << 20 // 10 MiB

	// MaxHunksPerPatch caps how fragmented a single patch may be.
	MaxHunksPerPatch = 100

	// MaxLinesPerHunk caps the line payload of one hunk.
	MaxLinesPerHunk = 500

	// MaxPatchesPerTransaction caps the size of one atomic transaction.
	MaxPatchesPerTransaction = 20

	// MaxConcurrentApplies is the system-wide ceiling on in-flight applies.
	// The core declares it but does not gate on it; callers invoking the
	// applier at scale are expected to respect it.
	MaxConcurrentApplies = 4

	// MaxHistoryEntries bounds the in-memory applied-patch history.
	MaxHistoryEntries = 100

	// MaxBackupsRetained bounds how many .bak files are kept per backup dir.
	MaxBackupsRetained = 50

	// LockStaleAfterSeconds is the age past which a held file lock may be
	// silently reclaimed by another holder.
	LockStaleAfterSeconds = 30
)
