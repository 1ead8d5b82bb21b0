package bumpath

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	concurrently "github.com/tejzpr/ordered-concurrently/v3"
	"k8s.io/klog/v2"

	"github.com/frogtools/bumpath/binformat"
	"github.com/frogtools/bumpath/internal/hashtable"
	"github.com/frogtools/bumpath/refwalk"
)

// ProcessOptions configures the write phase, per §4.9.6-4.9.7.
type ProcessOptions struct {
	IgnoreMissing bool
	CombineLinked bool
	// PathLengthCap is the maximum allowed output path length; 0 uses
	// the default of 240 (§4.9.7).
	PathLengthCap int
	// Concurrency is the worker-pool size; 0 uses runtime.NumCPU().
	Concurrency int
	// ShowProgress renders a terminal progress bar via progressbar/v3.
	ShowProgress bool
}

func (o ProcessOptions) pathCap() int {
	if o.PathLengthCap > 0 {
		return o.PathLengthCap
	}
	return 240
}

// ProcessReport summarizes one Process run, per §4.9.6.
type ProcessReport struct {
	RunID       uuid.UUID
	FilesCopied int
	BinsWritten int
	Warnings    []string
}

// DebugDump renders r with go-spew for diagnostic logging.
func (r *ProcessReport) DebugDump() string {
	return spew.Sdump(r)
}

type copyTask struct {
	srcAbs  string
	dstPath string
}

func (t copyTask) Run(ctx context.Context) interface{} {
	select {
	case <-ctx.Done():
		return &Cancelled{Err: ctx.Err()}
	default:
	}
	src, err := os.Open(t.srcAbs)
	if err != nil {
		return &IoError{Path: t.srcAbs, Err: err}
	}
	defer src.Close()
	if err := os.MkdirAll(filepath.Dir(t.dstPath), 0o755); err != nil {
		return &IoError{Path: t.dstPath, Err: err}
	}
	dst, err := os.Create(t.dstPath)
	if err != nil {
		return &IoError{Path: t.dstPath, Err: err}
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return &IoError{Path: t.dstPath, Err: err}
	}
	return nil
}

type writeTask struct {
	dstPath string
	data    []byte
}

func (t writeTask) Run(ctx context.Context) interface{} {
	select {
	case <-ctx.Done():
		return &Cancelled{Err: ctx.Err()}
	default:
	}
	if err := os.MkdirAll(filepath.Dir(t.dstPath), 0o755); err != nil {
		return &IoError{Path: t.dstPath, Err: err}
	}
	if err := os.WriteFile(t.dstPath, t.data, 0o644); err != nil {
		return &IoError{Path: t.dstPath, Err: err}
	}
	return nil
}

// Process rewrites and copies every editable entry's FILE references
// under outDir, per §4.9.6. The scan's bins are re-parsed from their raw
// bytes so the original ScanResult is never mutated.
//
// Output placement is anchored to each BIN's first entry: if that entry
// is editable its prefix decides where the whole rewritten BIN and its
// referenced assets land; BINs whose first entry is Uneditable are
// skipped entirely (they cannot be relocated). Per-entry prefixes still
// independently gate which FILE values are rewritten within the BIN.
//
// A FILE reference whose target is itself a BIN is followed recursively
// under the same prefix (§4.9.6 step 2): by default the linked BIN is
// rewritten and written to its own prefixed path; with
// ProcessOptions.CombineLinked, a linked BIN that is an animation BIN
// not itself part of the selection has its rewritten entries appended
// into the referencing BIN's output instead of being written separately,
// with a MergeConflict if an appended entry hash collides.
func Process(ctx context.Context, idx *SourceIndex, scan *ScanResult, tables *hashtable.Tables, outDir string, opts ProcessOptions) (*ProcessReport, error) {
	denylist := refwalk.DefaultPathFieldHashes()
	report := &ProcessReport{RunID: uuid.New()}

	var copies []copyTask
	var writes []writeTask
	scheduledOutputs := make(map[string]bool)

	selected := make(map[string]bool, len(scan.Bins))
	for _, bin := range scan.Bins {
		selected[bin.UnifyPath] = true
	}
	lc := &linkCtx{
		idx: idx, tables: tables, denylist: denylist, opts: opts, outDir: outDir,
		selected: selected, scheduledOutputs: scheduledOutputs, report: report,
		copies: &copies, writes: &writes,
	}

	for _, bin := range scan.Bins {
		if len(bin.Entries) == 0 {
			continue
		}
		primary := bin.Entries[0]
		if primary.Prefix == "" || primary.Prefix == UneditablePrefix {
			continue
		}

		file, err := binformat.Parse(bin.Raw, binformat.ReadOptions{})
		if err != nil {
			return nil, &ParseError{Path: bin.UnifyPath, Err: err}
		}

		seenHashes := make(map[uint32]bool, len(file.Entries))
		for _, e := range file.Entries {
			seenHashes[e.EntryHash] = true
		}
		visiting := map[string]bool{bin.UnifyPath: true}

		// Only the BIN's originally scanned entries carry a per-entry
		// prefix; entries appended afterward came from a merged linked
		// animation BIN (§4.9.6 step 2) and were already rewritten by
		// followLink under the prefix that referenced them.
		originalCount := len(bin.Entries)
		for i := 0; i < originalCount; i++ {
			entry := &file.Entries[i]
			scanned := bin.Entries[i]
			if scanned.Prefix == UneditablePrefix || scanned.Prefix == "" {
				continue
			}
			rewrites, err := rewriteEntryFiles(entry, tables, denylist, scanned.Prefix, UnifyPath(scanned.Name))
			if err != nil {
				return nil, &ParseError{Path: bin.UnifyPath, Err: err}
			}
			if err := lc.applyRewrites(file, rewrites, scanned.Prefix, visiting, seenHashes); err != nil {
				return nil, err
			}
		}
		if err := lc.processLinkedPaths(file, primary.Prefix, visiting, seenHashes); err != nil {
			return nil, err
		}

		binOutRel := applyPrefixToPath(primary.Prefix, bin.UnifyPath)
		if len(binOutRel) > opts.pathCap() {
			if opts.IgnoreMissing {
				report.Warnings = append(report.Warnings, (&PathTooLong{Path: binOutRel, Cap: opts.pathCap()}).Error())
				continue
			}
			return nil, &PathTooLong{Path: binOutRel, Cap: opts.pathCap()}
		}
		binOutPath := filepath.Join(outDir, filepath.FromSlash(binOutRel))
		if scheduledOutputs[binOutPath] {
			continue
		}
		data, err := binformat.Serialize(file)
		if err != nil {
			return nil, &ParseError{Path: bin.UnifyPath, Err: err}
		}
		scheduledOutputs[binOutPath] = true
		writes = append(writes, writeTask{dstPath: binOutPath, data: data})
	}

	total := len(copies) + len(writes)
	klog.Infof("bumpath: scheduled %s copies and %s BIN writes", humanize.Comma(int64(len(copies))), humanize.Comma(int64(len(writes))))

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(total))
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	inputChan := make(chan concurrently.WorkFunction, concurrency)
	outputChan := concurrently.Process(runCtx, inputChan, &concurrently.Options{PoolSize: concurrency, OutChannelBuffer: concurrency})

	var mu sync.Mutex
	var firstErr error

	done := make(chan struct{})
	go func() {
		defer close(done)
		for out := range outputChan {
			if bar != nil {
				_ = bar.Add(1)
			}
			switch v := out.Value.(type) {
			case nil:
				continue
			case *Cancelled:
				mu.Lock()
				if firstErr == nil {
					firstErr = v
				}
				mu.Unlock()
			case error:
				mu.Lock()
				if firstErr == nil {
					firstErr = v
					cancel()
				}
				mu.Unlock()
			default:
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("bumpath: unexpected task result type %T", v)
				}
				mu.Unlock()
			}
		}
	}()

	for _, c := range copies {
		inputChan <- c
	}
	for _, w := range writes {
		inputChan <- w
	}
	close(inputChan)
	<-done

	if firstErr != nil {
		return report, firstErr
	}

	report.FilesCopied = len(copies)
	report.BinsWritten = len(writes)
	return report, nil
}
