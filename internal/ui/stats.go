package ui

import "sync/atomic"

type Stats struct {
	Chapters atomic.Int64
	Pages    atomic.Int64
	Failed   atomic.Int64
}
