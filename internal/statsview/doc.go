// Package statsview serves charts of the emulator process's memory,
// goroutine and GC statistics, plus the pprof pages, over local HTTP.
// The server comes from github.com/go-echarts/statsview and is only
// compiled in with the statsview build tag:
//
//	go build -tags statsview ./cmd/nescore
//
// Without the tag Launch reports that the server is unavailable.
package statsview
