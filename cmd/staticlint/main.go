// Package main запускает multichecker проекта.
//
// Набор проверок:
//   - анализаторы go/analysis/passes (shadow, structtag, nilness, fieldalignment,
//     printf, errorsas, lostcancel, httpresponse);
//   - все SA-анализаторы staticcheck, S1000 из simple и U1000 из unused;
//   - bodyclose для тел ответов внешних сервисов (QR, геолокация, OAuth);
//   - noexit, запрещающий завершать процесс из main.
//
// Запуск:
//
//	go run ./cmd/staticlint ./...
package main

import (
	"strings"

	"github.com/timakin/bodyclose/passes/bodyclose"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/fieldalignment"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/nilness"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/shadow"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/simple"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/unused"

	"github.com/Totarae/shorttty/cmd/staticlint/noexit"
)

func main() {
	multichecker.Main(analyzers()...)
}

func analyzers() []*analysis.Analyzer {
	list := []*analysis.Analyzer{
		shadow.Analyzer,
		structtag.Analyzer,
		nilness.Analyzer,
		fieldalignment.Analyzer,
		printf.Analyzer,
		errorsas.Analyzer,
		lostcancel.Analyzer,
		httpresponse.Analyzer,
	}
	list = append(list, selectChecks(staticcheck.Analyzers, "SA", nil)...)
	list = append(list, selectChecks(simple.Analyzers, "", []string{"S1000"})...)
	list = append(list, unused.Analyzer.Analyzer, bodyclose.Analyzer, noexit.NewAnalyzer())
	return list
}

// selectChecks берёт проверки с префиксом prefix и перечисленные по имени.
// Пустой prefix ничего не выбирает сам по себе.
func selectChecks(checks []*lint.Analyzer, prefix string, names []string) []*analysis.Analyzer {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var out []*analysis.Analyzer
	for _, c := range checks {
		if (prefix != "" && strings.HasPrefix(c.Analyzer.Name, prefix)) || wanted[c.Analyzer.Name] {
			out = append(out, c.Analyzer)
		}
	}
	return out
}
