package bumpath

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/frogtools/bumpath/binformat"
	"github.com/frogtools/bumpath/internal/hashtable"
)

// linkCtx threads the state shared across one Process run's recursive
// linked-BIN rewrite (§4.9.6 step 2), so that rewriteBin/followLink don't
// need a dozen positional parameters.
type linkCtx struct {
	idx      *SourceIndex
	tables   *hashtable.Tables
	denylist map[uint32]bool
	opts     ProcessOptions
	outDir   string
	selected map[string]bool // unify_paths the caller selected directly, vs. pulled in via a link

	scheduledOutputs map[string]bool
	report           *ProcessReport
	copies           *[]copyTask
	writes           *[]writeTask
}

// applyRewrites schedules one entry's FILE/path-STRING rewrites: a
// rewrite targeting a non-BIN asset is scheduled as a copy; a rewrite
// targeting a BIN is followed recursively, and any entries it returns
// (because it was merged rather than written standalone) are appended to
// file's own entry list, per §4.9.6 step 2.
func (lc *linkCtx) applyRewrites(file *binformat.File, rewrites []fileRewrite, prefix string, visiting map[string]bool, seen map[uint32]bool) error {
	for _, rw := range rewrites {
		if classify(rw.OriginalUnify) == KindBin {
			merged, err := lc.followLink(rw.OriginalUnify, prefix, visiting, seen)
			if err != nil {
				return err
			}
			file.Entries = append(file.Entries, merged...)
			continue
		}
		if err := lc.scheduleCopy(rw); err != nil {
			return err
		}
	}
	return nil
}

// scheduleCopy schedules the copy of one non-BIN rewritten reference,
// per §4.9.6 steps 2 and 4 and the path-cap policy of §4.9.7.
func (lc *linkCtx) scheduleCopy(rw fileRewrite) error {
	dstPath := filepath.Join(lc.outDir, filepath.FromSlash(rw.NewPath))
	if len(rw.NewPath) > lc.opts.pathCap() {
		if lc.opts.IgnoreMissing {
			lc.report.Warnings = append(lc.report.Warnings, (&PathTooLong{Path: rw.NewPath, Cap: lc.opts.pathCap()}).Error())
			return nil
		}
		return &PathTooLong{Path: rw.NewPath, Cap: lc.opts.pathCap()}
	}
	if lc.scheduledOutputs[dstPath] {
		return nil // same destination already scheduled: no-op, per §4.9.8
	}
	se, ok := lc.idx.Get(rw.OriginalUnify)
	if !ok {
		if lc.opts.IgnoreMissing {
			lc.report.Warnings = append(lc.report.Warnings, (&ResourceMissing{Path: rw.OriginalUnify}).Error())
			return nil
		}
		return &ResourceMissing{Path: rw.OriginalUnify}
	}
	lc.scheduledOutputs[dstPath] = true
	*lc.copies = append(*lc.copies, copyTask{srcAbs: se.AbsPath, dstPath: dstPath})
	return nil
}

// rewriteBin rewrites every entry of a linked BIN already parsed into
// file, reusing one prefix for all of them (linked BINs have no
// per-entry scan prefix of their own, per §4.9.6 step 2's "reusing the
// same prefix"). Entries appended into file.Entries by a deeper merge
// are picked up by the growing loop bound.
func (lc *linkCtx) rewriteBin(file *binformat.File, unify, prefix string, visiting map[string]bool) error {
	seen := make(map[uint32]bool, len(file.Entries))
	for _, e := range file.Entries {
		seen[e.EntryHash] = true
	}
	for i := 0; i < len(file.Entries); i++ {
		entry := &file.Entries[i]
		selfUnify := UnifyPath(resolveName(lc.tables, entry.EntryHash))
		rewrites, err := rewriteEntryFiles(entry, lc.tables, lc.denylist, prefix, selfUnify)
		if err != nil {
			return &ParseError{Path: unify, Err: err}
		}
		if err := lc.applyRewrites(file, rewrites, prefix, visiting, seen); err != nil {
			return err
		}
	}
	return lc.processLinkedPaths(file, prefix, visiting, seen)
}

// processLinkedPaths follows every entry of file's own header-level
// LinkedPaths (§3.6's "optional list of linked-BIN path strings", not a
// FILE field), which is the BIN format's actual linked-BIN mechanism —
// the one §4.9.2 says an animation BIN is pulled in through. Each is
// rewritten/merged exactly like a BIN-valued FILE reference: a merged
// entry is inlined into file.Entries and dropped from the header list; a
// standalone one is kept in the header list, repointed at its new
// relocated path.
func (lc *linkCtx) processLinkedPaths(file *binformat.File, prefix string, visiting map[string]bool, seen map[uint32]bool) error {
	kept := file.LinkedPaths[:0]
	for _, raw := range file.LinkedPaths {
		target := UnifyPath(raw)
		merged, err := lc.followLink(target, prefix, visiting, seen)
		if err != nil {
			return err
		}
		if merged != nil {
			file.Entries = append(file.Entries, merged...)
			continue
		}
		kept = append(kept, applyPrefixToPath(prefix, target))
	}
	file.LinkedPaths = kept
	return nil
}

// followLink parses the linked BIN at unify and recursively rewrites it
// under prefix, per §4.9.6 step 2. If combine_linked is set and unify is
// an animation BIN that wasn't itself directly selected, its rewritten
// entries are returned for the caller to append into its own output
// instead of being written as a separate file; duplicate entry hashes
// against seen raise MergeConflict. Otherwise nil is returned and the
// linked BIN is scheduled as its own standalone output file.
func (lc *linkCtx) followLink(unify, prefix string, visiting map[string]bool, seen map[uint32]bool) ([]binformat.Entry, error) {
	if visiting[unify] {
		return nil, &SemanticError{Kind: CycleInLinks, Detail: unify}
	}

	merge := lc.opts.CombineLinked && IsAnimationBin(unify) && !lc.selected[unify]
	dstRel := applyPrefixToPath(prefix, unify)
	dstPath := filepath.Join(lc.outDir, filepath.FromSlash(dstRel))

	if !merge {
		if len(dstRel) > lc.opts.pathCap() {
			if lc.opts.IgnoreMissing {
				lc.report.Warnings = append(lc.report.Warnings, (&PathTooLong{Path: dstRel, Cap: lc.opts.pathCap()}).Error())
				return nil, nil
			}
			return nil, &PathTooLong{Path: dstRel, Cap: lc.opts.pathCap()}
		}
		if lc.scheduledOutputs[dstPath] {
			return nil, nil // already written via an earlier reference, §4.9.8
		}
	}

	se, ok := lc.idx.Get(unify)
	if !ok {
		if lc.opts.IgnoreMissing {
			lc.report.Warnings = append(lc.report.Warnings, (&ResourceMissing{Path: unify}).Error())
			return nil, nil
		}
		return nil, &ResourceMissing{Path: unify}
	}
	raw, err := os.ReadFile(se.AbsPath)
	if err != nil {
		return nil, &IoError{Path: se.AbsPath, Err: err}
	}
	linked, err := binformat.Parse(raw, binformat.ReadOptions{})
	if err != nil {
		return nil, &ParseError{Path: unify, Err: err}
	}

	visiting[unify] = true
	defer delete(visiting, unify)
	if err := lc.rewriteBin(linked, unify, prefix, visiting); err != nil {
		return nil, err
	}

	if merge {
		for _, e := range linked.Entries {
			if seen[e.EntryHash] {
				return nil, &SemanticError{Kind: MergeConflict, Detail: fmt.Sprintf(
					"entry hash %08x from linked BIN %q already present in the BIN it merges into", e.EntryHash, unify)}
			}
			seen[e.EntryHash] = true
		}
		return linked.Entries, nil
	}

	data, err := binformat.Serialize(linked)
	if err != nil {
		return nil, &ParseError{Path: unify, Err: err}
	}
	lc.scheduledOutputs[dstPath] = true
	*lc.writes = append(*lc.writes, writeTask{dstPath: dstPath, data: data})
	return nil, nil
}
