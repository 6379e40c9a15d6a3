// Package generic is the fallback source for plain HTML reading sites. It
// finds chapter links by their URL shape and collects page images from the
// DOM, embedded SSR state and, optionally, endpoints referenced by scripts.
package generic
