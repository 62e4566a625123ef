// Package textutil provides the text normalization and similarity
// primitives the matcher builds its penalty components from.
package textutil
