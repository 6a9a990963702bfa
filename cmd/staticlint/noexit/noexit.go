// Package noexit содержит анализатор, который запрещает завершать процесс
// прямо из функции main пакета main: os.Exit, log.Fatal* и Fatal у zap.Logger
// обходят defer, и сервер не успевает закрыть хранилище и остановить HTTP.
package noexit

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

var forbidden = map[string]bool{
	"os.Exit":     true,
	"log.Fatal":   true,
	"log.Fatalf":  true,
	"log.Fatalln": true,

	"(*go.uber.org/zap.Logger).Fatal":         true,
	"(*go.uber.org/zap.SugaredLogger).Fatal":  true,
	"(*go.uber.org/zap.SugaredLogger).Fatalf": true,
	"(*go.uber.org/zap.SugaredLogger).Fatalw": true,
}

// Analyzer запрещает завершать процесс из main.
var Analyzer = &analysis.Analyzer{
	Name:     "noexit",
	Doc:      "запрещает os.Exit, log.Fatal и zap Fatal в функции main пакета main",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// NewAnalyzer возвращает анализатор noexit.
func NewAnalyzer() *analysis.Analyzer {
	return Analyzer
}

func run(pass *analysis.Pass) (any, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	insp.Preorder([]ast.Node{(*ast.FuncDecl)(nil)}, func(n ast.Node) {
		fn := n.(*ast.FuncDecl)
		if fn.Name.Name != "main" || fn.Recv != nil || fn.Body == nil {
			return
		}
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			// замыкания запускаются позже и main не завершают
			if _, ok := n.(*ast.FuncLit); ok {
				return false
			}
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			if name := calleeName(pass.TypesInfo, call); forbidden[name] {
				pass.Reportf(call.Pos(), "вызов %s в функции main запрещён", name)
			}
			return true
		})
	})
	return nil, nil
}

func calleeName(info *types.Info, call *ast.CallExpr) string {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return ""
	}
	f, ok := info.Uses[sel.Sel].(*types.Func)
	if !ok {
		return ""
	}
	return f.FullName()
}
