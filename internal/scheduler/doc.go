// Package scheduler decides which concepts a learner must revisit and commits
// completed teaching quests to the mastery store.
//
// It combines the concept graph (which prerequisites matter), the mastery
// store (what the learner has been taught) and the retention model (how much
// of it has decayed). The scheduler performs no network I/O of its own.
package scheduler
