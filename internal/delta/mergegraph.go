package delta

import (
	"fmt"

	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/rrf"
	"github.com/gowtham-rao/py-neo-umls-syncer-go/internal/syncerr"
)

// ResolveMergeChains collapses transitive MERGEDCUI chains (A->B, B->C
// becomes A->C, B->C) per spec.md section 4.5, "Ordering within a
// batch". A cycle in the merge graph is a data error and aborts with
// a fatal error naming the cycle.
func ResolveMergeChains(merges []rrf.Merge) ([]rrf.Merge, error) {
	target := make(map[string]string, len(merges))
	order := make([]string, 0, len(merges))
	for _, m := range merges {
		if _, exists := target[m.OldCUI]; !exists {
			order = append(order, m.OldCUI)
		}
		target[m.OldCUI] = m.NewCUI
	}

	resolved := make([]rrf.Merge, 0, len(order))
	for _, old := range order {
		final, err := resolveFinalTarget(old, target)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, rrf.Merge{OldCUI: old, NewCUI: final})
	}
	return resolved, nil
}

// resolveFinalTarget walks the chain starting at old until it reaches
// a CUI that is not itself a merge source, detecting cycles via a
// visited set.
func resolveFinalTarget(old string, target map[string]string) (string, error) {
	visited := []string{old}
	seen := map[string]bool{old: true}

	cur := old
	for {
		next, isMapped := target[cur]
		if !isMapped {
			return cur, nil
		}
		if seen[next] {
			cycle := append(visited, next)
			return "", syncerr.New(syncerr.MergeGraph, fmt.Sprintf("cycle detected: %s", formatCycle(cycle)), nil)
		}
		seen[next] = true
		visited = append(visited, next)
		cur = next
	}
}

func formatCycle(cycle []string) string {
	out := ""
	for i, c := range cycle {
		if i > 0 {
			out += " -> "
		}
		out += c
	}
	return out
}
