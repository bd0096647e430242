package compile

import "github.com/combi-lang/combi/pkg/combi"

// measure computes the well-founded triple optimise's termination argument
// rests on: the count of Apply+ThenRight+Bind nodes (the three rule
// families with re-association rules that could otherwise cycle against
// each other), the tree's depth, and its total node count. Not every rule in
// rules.go decreases this triple (adjacent-literal fusion, for one, leaves
// it unchanged; see the notes in rules.go), and optimise's per-node loop is
// bounded by maxLocalPasses. measure_test.go checks, on a fixed corpus of
// hand-built trees, that Optimize's output measures strictly smaller than
// its input or is the input itself; this is test-only scaffolding.
func measure(n combi.Node) (chainOps, depth, nodes int) {
	c, d, cnt := measureNode(n, map[combi.Node]bool{})
	return c, d, cnt
}

func measureNode(n combi.Node, onPath map[combi.Node]bool) (int, int, int) {
	if onPath[n] {
		// A FixpointNode's Target is a back-edge, not owned structure; stop.
		return 0, 0, 1
	}

	children := childrenOf(n)
	if len(children) == 0 {
		return 0, 1, 1
	}

	onPath[n] = true
	defer delete(onPath, n)

	chainOps, maxDepth, totalNodes := 0, 0, 1
	for _, c := range children {
		cc, cd, cn := measureNode(c, onPath)
		chainOps += cc
		if cd > maxDepth {
			maxDepth = cd
		}
		totalNodes += cn
	}

	switch n.(type) {
	case *combi.ApplyNode, *combi.ThenRightNode, *combi.BindNode:
		chainOps++
	}

	return chainOps, maxDepth + 1, totalNodes
}

// childrenOf returns n's immediate Node-valued fields, ignoring non-Node
// payloads (functions, predicates, literals). FixpointNode's Target is
// deliberately excluded: it is reached by identity, never walked, matching
// the same rule rebuildChildren and the preprocess pass both follow.
func childrenOf(n combi.Node) []combi.Node {
	switch t := n.(type) {
	case *combi.ApplyNode:
		return []combi.Node{t.PF, t.PX}
	case *combi.ThenRightNode:
		return []combi.Node{t.P, t.Q}
	case *combi.ThenLeftNode:
		return []combi.Node{t.P, t.Q}
	case *combi.BindNode:
		return []combi.Node{t.P}
	case *combi.Lift2Node:
		return []combi.Node{t.P, t.Q}
	case *combi.Lift3Node:
		return []combi.Node{t.P, t.Q, t.R}
	case *combi.AltNode:
		return []combi.Node{t.P, t.Q}
	case *combi.AttemptNode:
		return []combi.Node{t.P}
	case *combi.LookAheadNode:
		return []combi.Node{t.P}
	case *combi.NotFollowedByNode:
		return []combi.Node{t.P}
	case *combi.TernaryNode:
		return []combi.Node{t.B, t.P, t.Q}
	case *combi.ManyNode:
		return []combi.Node{t.P}
	case *combi.SkipManyNode:
		return []combi.Node{t.P}
	case *combi.ChainPreNode:
		return []combi.Node{t.P, t.Op}
	case *combi.ChainPostNode:
		return []combi.Node{t.P, t.Op}
	case *combi.ChainLeftNode:
		return []combi.Node{t.P, t.Op}
	case *combi.ChainRightNode:
		return []combi.Node{t.P, t.Op}
	case *combi.SepEndBy1Node:
		return []combi.Node{t.P, t.Sep}
	case *combi.ManyUntilNode:
		return []combi.Node{t.Body, t.End}
	case *combi.FastFailNode:
		return []combi.Node{t.Body}
	case *combi.FastUnexpectedNode:
		return []combi.Node{t.Body}
	case *combi.EnsureNode:
		return []combi.Node{t.P}
	case *combi.GuardNode:
		return []combi.Node{t.P}
	case *combi.FastGuardNode:
		return []combi.Node{t.P}
	case *combi.PutNode:
		return []combi.Node{t.P}
	case *combi.LocalNode:
		return []combi.Node{t.P, t.Q}
	case *combi.ErrorRelabelNode:
		return []combi.Node{t.P}
	case *combi.SubroutineNode:
		return []combi.Node{t.P}
	case *combi.DebugNode:
		return []combi.Node{t.P}
	default:
		return nil
	}
}
