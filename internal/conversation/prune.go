// File: internal/conversation/prune.go
package conversation

// PruneImages drops the oldest image blocks nested in tool_result blocks so
// that at most keep of them remain across the whole history. Text content and
// the order of what remains are untouched. A negative keep disables pruning.
// It returns the number of images removed.
func PruneImages(messages []Message, keep int) int {
	if keep < 0 {
		return 0
	}

	total := 0
	for _, m := range messages {
		for _, b := range m.Content {
			if b.Type == BlockToolResult {
				total += countImages(b.Content)
			}
		}
	}

	toRemove := total - keep
	if toRemove <= 0 {
		return 0
	}

	removed := 0
	for i := range messages {
		for j := range messages[i].Content {
			if removed == toRemove {
				return removed
			}
			block := &messages[i].Content[j]
			if block.Type != BlockToolResult {
				continue
			}
			kept := block.Content[:0:0]
			for _, inner := range block.Content {
				if inner.Type == BlockImage && removed < toRemove {
					removed++
					continue
				}
				kept = append(kept, inner)
			}
			block.Content = kept
		}
	}
	return removed
}

func countImages(blocks []Block) int {
	n := 0
	for _, b := range blocks {
		if b.Type == BlockImage {
			n++
		}
	}
	return n
}
