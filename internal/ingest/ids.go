package ingest

import "github.com/knowgraph/knowgraph/internal/parse"

// symbolQualifiedName returns the name portion used to build a symbol's
// node id: a method's qualified name is "{ClassName}.{method_name}", every
// other symbol kind uses its bare name.
func symbolQualifiedName(sym parse.ParsedSymbol) string {
	if sym.ClassName != "" {
		return sym.ClassName + "." + sym.Name
	}
	return sym.Name
}
