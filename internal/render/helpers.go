// Package render produces Graphviz DOT output for method flow graphs and
// class callgraphs.
package render

import (
	"fmt"
	"sort"
	"strings"
)

// dotEscape escapes a string for use in DOT HTML labels.
func dotEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// dotID creates a safe DOT identifier from a method key.
func dotID(name string) string {
	var b strings.Builder
	b.WriteString("n_")
	for _, c := range name {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteRune(c)
		} else {
			fmt.Fprintf(&b, "_%04x", c)
		}
	}
	return b.String()
}

// ownerOf returns the class part of a method key.
// "java.lang.Object.<init>()V" → "java.lang.Object". Keys without a
// descriptor or a dotted owner yield "".
func ownerOf(key string) string {
	paren := strings.IndexByte(key, '(')
	if paren < 0 {
		return ""
	}
	dot := strings.LastIndexByte(key[:paren], '.')
	if dot <= 0 || strings.ContainsRune(key[:dot], ' ') {
		return ""
	}
	return key[:dot]
}

// stripMethodName removes the owner prefix from a method key.
// "Owner.run()V" → "run()V". Returns the original if no match.
func stripMethodName(key, owner string) string {
	prefix := owner + "."
	if strings.HasPrefix(key, prefix) {
		return key[len(prefix):]
	}
	return key
}

// truncLabel shortens a label to maxLen, appending "..." if truncated.
func truncLabel(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// writeHeader emits the graph attributes shared by the callgraph views.
func writeHeader(b *strings.Builder, kind, title string, t Theme) {
	fmt.Fprintf(b, "digraph %s {\n", kind)
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  compound=true;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.4;\n")
	b.WriteString("  ranksep=0.6;\n")
	fmt.Fprintf(b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=9, fontcolor=%q, height=0.3, margin=\"0.12,0.06\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	b.WriteString("  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee];\n")
	writeTitle(b, title, 8, t)
	b.WriteByte('\n')
}

func writeTitle(b *strings.Builder, title string, size int, t Theme) {
	if title == "" {
		return
	}
	b.WriteString("  labelloc=t;\n  labeljust=l;\n")
	fmt.Fprintf(b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"%d\" color=\"%s\">%s</font>>;\n",
		size, t.TextColor, dotEscape(title))
}

// sortedKeys returns the keys of a set in order, so output is stable.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
