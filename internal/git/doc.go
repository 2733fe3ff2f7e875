// Package git wraps the per-repository operations forksync needs: pruned
// fetches, reset-to-origin checkouts, upstream remote management, branch
// negotiation, merge, and range measurement.
//
// Most operations use go-git. The merge step shells out to the git CLI
// because go-git has no three-way merge; using the CLI there also keeps the
// merge driver and conflict behavior identical to what an operator sees when
// fixing a conflicted submodule by hand.
package git
