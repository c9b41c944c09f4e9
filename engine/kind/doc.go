// Package kind holds the kind validators used to decide whether an entity is
// of a kind the catalog understands. Validators are matched in order and the
// first one that accepts an entity wins.
package kind
