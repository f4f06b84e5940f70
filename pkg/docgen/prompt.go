package docgen

import (
	"fmt"
	"strings"

	"github.com/abapdoc/abapdoc/pkg/abap"
	"github.com/abapdoc/abapdoc/pkg/graph"
)

// depContext is one already-summarized dependency, as it appears in
// the prompt of a dependent object.
type depContext struct {
	Name    string
	Type    abap.ObjectType
	Summary string
	Members []abap.MemberRef
}

// objectPrompt builds the generation prompt for one object: a source
// excerpt, the finished summaries of its direct dependencies, and the
// objects using it.
func objectPrompt(n *graph.Node, source string, deps []depContext, maxSource int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document the ABAP %s %s.\n", typeLabel(n.Type), n.Name)
	if !n.Custom {
		b.WriteString("It is SAP-delivered; infer its role from the source and usage below.\n")
	}

	if source != "" {
		b.WriteString("\nSource:\n```abap\n")
		b.WriteString(clampSource(source, maxSource))
		b.WriteString("\n```\n")
	}

	if len(deps) > 0 {
		b.WriteString("\nIts direct dependencies, already documented:\n")
		for _, d := range deps {
			fmt.Fprintf(&b, "- %s (%s): %s", d.Name, typeLabel(d.Type), excerpt(d.Summary, 280))
			if m := memberList(d.Members, 6); m != "" {
				fmt.Fprintf(&b, " [uses %s]", m)
			}
			b.WriteByte('\n')
		}
	}

	if len(n.UsedBy) > 0 {
		fmt.Fprintf(&b, "\nIt is used by %s.\n", joinNames(n.UsedBy, 8))
	}

	b.WriteString("\nSummarize what this object does and how it fits between its dependencies and its users.")
	return b.String()
}

// clusterPrompt builds the joint prompt for one cluster. The reply is
// expected to carry a short group name on the first line, then the
// summary; splitNamedSummary undoes this.
func clusterPrompt(pkg string, c *graph.Cluster, objectSummaries map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The ABAP package %s contains a group of %d objects that depend on each other:\n",
		pkg, len(c.Objects))
	for _, name := range c.Objects {
		fmt.Fprintf(&b, "- %s: %s\n", name, excerpt(objectSummaries[name], 280))
	}
	fmt.Fprintf(&b, "\nThey are connected by %d internal references.\n", len(c.Edges))
	b.WriteString("\nReply with a short functional name for this group on the first line (at most four words, no punctuation), then a blank line, then one paragraph summarizing what the group does as a whole.")
	return b.String()
}

// overviewPrompt builds the package overview prompt from the cluster
// summaries.
func overviewPrompt(pg *graph.PackageGraph, clusterSummaries map[int]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the introduction for the documentation of the ABAP package %s.\n", pg.Package)
	fmt.Fprintf(&b, "It contains %d objects in %d groups:\n\n", pg.NodeCount(), len(pg.Clusters))
	for _, c := range pg.Clusters {
		fmt.Fprintf(&b, "%s (%d objects): %s\n\n", c.DisplayName(), len(c.Objects), excerpt(clusterSummaries[c.ID], 400))
	}
	if len(pg.External) > 0 {
		fmt.Fprintf(&b, "The package references %d objects outside of it.\n", len(pg.External))
	}
	b.WriteString("\nDescribe what the package is for and how the groups relate. Two paragraphs at most.")
	return b.String()
}

// splitNamedSummary separates the name line of a cluster reply from
// the summary body. Replies that do not follow the format come back
// unnamed and untouched.
func splitNamedSummary(text string) (name, summary string) {
	text = strings.TrimSpace(text)
	i := strings.IndexByte(text, '\n')
	if i < 0 {
		return "", text
	}
	name = strings.Trim(strings.TrimSpace(text[:i]), "#*`\". ")
	summary = strings.TrimSpace(text[i+1:])
	if name == "" || len(name) > 60 || summary == "" {
		return "", text
	}
	return name, summary
}

// clampSource cuts source at the last line boundary before max.
func clampSource(source string, max int) string {
	source = strings.TrimSpace(source)
	if len(source) <= max {
		return source
	}
	cut := strings.LastIndexByte(source[:max], '\n')
	if cut <= 0 {
		cut = max
	}
	return source[:cut] + "\n[source truncated]"
}

// excerpt returns the first sentence-ish piece of s, cut at a word
// boundary before max.
func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) <= max {
		return s
	}
	cut := strings.LastIndexByte(s[:max], ' ')
	if cut <= 0 {
		cut = max
	}
	return s[:cut] + "..."
}

// memberList formats member references for prompts and tables,
// capping the enumeration.
func memberList(members []abap.MemberRef, max int) string {
	if len(members) == 0 {
		return ""
	}
	parts := make([]string, 0, len(members))
	for i, m := range members {
		if i == max {
			parts = append(parts, fmt.Sprintf("and %d more", len(members)-max))
			break
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", m.Name, m.Kind))
	}
	return strings.Join(parts, ", ")
}

// joinNames joins up to max names, summarizing the rest.
func joinNames(names []string, max int) string {
	if len(names) <= max {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(names[:max], ", "), len(names)-max)
}

// typeLabel renders an object category for human-facing text.
func typeLabel(t abap.ObjectType) string {
	switch t {
	case abap.TypeCDSView:
		return "CDS view"
	case abap.TypeFunctionModule:
		return "function module"
	default:
		return strings.ReplaceAll(t.String(), "_", " ")
	}
}
