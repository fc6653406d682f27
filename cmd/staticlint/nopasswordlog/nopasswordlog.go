// Package nopasswordlog reports values named like a password that are passed to a logger.
package nopasswordlog

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

var Analyzer = &analysis.Analyzer{
	Name:     "nopasswordlog",
	Doc:      "reports passwords passed to zap, log or slog loggers",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

var loggerPackages = map[string]bool{
	"go.uber.org/zap": true,
	"log":             true,
	"log/slog":        true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	inspect.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		if !isLoggerCall(pass.TypesInfo, call) {
			return
		}

		for _, arg := range call.Args {
			if name, found := passwordValue(pass.TypesInfo, arg); found {
				pass.Reportf(arg.Pos(), "%s is passed to a logger", name)
			}
		}
	})

	return nil, nil
}

func isLoggerCall(info *types.Info, call *ast.CallExpr) bool {
	fn, ok := typeutil.Callee(info, call).(*types.Func)
	if !ok || fn.Pkg() == nil {
		return false
	}

	return loggerPackages[fn.Pkg().Path()]
}

// passwordValue finds a string or []byte identifier or field named like a password inside expr.
func passwordValue(info *types.Info, expr ast.Expr) (string, bool) {
	var name string

	ast.Inspect(expr, func(n ast.Node) bool {
		if name != "" {
			return false
		}

		var ident *ast.Ident
		switch node := n.(type) {
		case *ast.Ident:
			ident = node
		case *ast.SelectorExpr:
			ident = node.Sel
		default:
			return true
		}

		if strings.Contains(strings.ToLower(ident.Name), "password") && isSecretType(info.TypeOf(ident)) {
			name = ident.Name
		}

		return true
	})

	return name, name != ""
}

func isSecretType(t types.Type) bool {
	if t == nil {
		return false
	}

	switch underlying := t.Underlying().(type) {
	case *types.Basic:
		return underlying.Info()&types.IsString != 0
	case *types.Slice:
		elem, ok := underlying.Elem().Underlying().(*types.Basic)
		return ok && elem.Kind() == types.Byte
	}

	return false
}
