package parser

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// GroundTruth is an authoritative node grouping. Group IDs start at 1 and
// follow the order of data lines in the source file.
type GroundTruth struct {
	NodeToGroup  map[string]int   `json:"node_gt"`
	GroupToNodes map[int][]string `json:"gt_to_nodes"`
}

// NumGroups returns the number of groups
func (gt *GroundTruth) NumGroups() int { return len(gt.GroupToNodes) }

// Group returns the group a node is mapped to
func (gt *GroundTruth) Group(node string) (int, bool) {
	g, ok := gt.NodeToGroup[node]
	return g, ok
}

// GroupIDs returns the group IDs in ascending order
func (gt *GroundTruth) GroupIDs() []int {
	ids := make([]int, 0, len(gt.GroupToNodes))
	for id := range gt.GroupToNodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Validate checks that every node's group lists the node
func (gt *GroundTruth) Validate() error {
	for node, group := range gt.NodeToGroup {
		found := false
		for _, member := range gt.GroupToNodes[group] {
			if member == node {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("node %q maps to group %d which does not list it", node, group)
		}
	}
	return nil
}

// ParseGroundTruth reads one group per non-blank, non-comment line, members
// comma separated. An empty member token fails the whole parse.
func ParseGroundTruth(r io.Reader, opts Options) (*GroundTruth, error) {
	gt := &GroundTruth{
		NodeToGroup:  make(map[string]int),
		GroupToNodes: make(map[int][]string),
	}
	prefix := opts.commentPrefix()
	groupID := 0

	err := scanLines(r, func(lineNo int, line string) error {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, prefix) {
			return nil
		}

		groupID++
		seen := make(map[string]struct{})
		for _, token := range strings.Split(line, ",") {
			node := strings.TrimSpace(token)
			if node == "" {
				return fmt.Errorf("line %d (group %d): %w", lineNo, groupID, ErrEmptyNodeID)
			}
			if prev, ok := gt.NodeToGroup[node]; ok && prev != groupID {
				opts.Logger.Warn().
					Str("node", node).
					Int("previous_group", prev).
					Int("group", groupID).
					Msg("Node listed in several groups, keeping the last")
			}
			gt.NodeToGroup[node] = groupID
			if _, dup := seen[node]; !dup {
				seen[node] = struct{}{}
				gt.GroupToNodes[groupID] = append(gt.GroupToNodes[groupID], node)
			}
		}
		return nil
	})
	if err != nil {
		return nil, classifyReadError(err)
	}

	if groupID == 0 {
		return nil, ErrEmptyGroundTruth
	}
	return gt, nil
}

// LoadGroundTruth opens path (plain, gzip or snappy) and parses it with ParseGroundTruth
func LoadGroundTruth(path string, opts Options) (*GroundTruth, error) {
	rc, _, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	gt, err := ParseGroundTruth(rc, opts)
	if err != nil {
		return nil, fmt.Errorf("parse ground truth %s: %w", path, err)
	}

	opts.Logger.Info().
		Str("path", path).
		Int("groups", gt.NumGroups()).
		Int("nodes", len(gt.NodeToGroup)).
		Msg("Ground truth loaded")

	return gt, nil
}
