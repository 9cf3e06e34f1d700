// Package validator is the static half of the execution gate: it parses a
// script into a syntax tree and walks every node against the capability
// policy before anything is allowed to run.
package validator

import (
	"fmt"
	"strings"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"

	"github.com/michaelbrown/plotbox/internal/policy"
)

// Outcome kinds.
const (
	KindSyntax    = "syntax"
	KindForbidden = "validation"
)

// Outcome is the result of checking one script. Immutable once produced.
type Outcome struct {
	Accepted bool
	Kind     string // KindSyntax or KindForbidden when rejected
	Reason   string
}

// Validator checks scripts against a capability policy. Check is a pure
// function of the source text and the policy, so a Validator is safe for
// concurrent use.
type Validator struct {
	pol policy.Policy
}

// New creates a Validator for the given policy.
func New(pol policy.Policy) *Validator {
	return &Validator{pol: pol}
}

// Check parses the source and walks the tree depth-first in source order.
// The first violation wins; no aggregation.
func (v *Validator) Check(source string) Outcome {
	chunk, err := parse.Parse(strings.NewReader(source), "script")
	if err != nil {
		return Outcome{Kind: KindSyntax, Reason: fmt.Sprintf("syntax error: %v", err)}
	}

	if err := v.walkStmts(chunk); err != nil {
		return Outcome{Kind: KindForbidden, Reason: err.Error()}
	}

	return Outcome{Accepted: true}
}

// violation carries the offending line and construct name.
type violation struct {
	line int
	msg  string
}

func (e *violation) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.msg)
}

func (v *Validator) walkStmts(stmts []ast.Stmt) error {
	for _, st := range stmts {
		if err := v.walkStmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) walkStmt(st ast.Stmt) error {
	switch s := st.(type) {
	case *ast.AssignStmt:
		if err := v.walkExprs(s.Lhs); err != nil {
			return err
		}
		return v.walkExprs(s.Rhs)
	case *ast.LocalAssignStmt:
		return v.walkExprs(s.Exprs)
	case *ast.FuncCallStmt:
		return v.walkExpr(s.Expr)
	case *ast.DoBlockStmt:
		return v.walkStmts(s.Stmts)
	case *ast.WhileStmt:
		if err := v.walkExpr(s.Condition); err != nil {
			return err
		}
		return v.walkStmts(s.Stmts)
	case *ast.RepeatStmt:
		if err := v.walkStmts(s.Stmts); err != nil {
			return err
		}
		return v.walkExpr(s.Condition)
	case *ast.IfStmt:
		if err := v.walkExpr(s.Condition); err != nil {
			return err
		}
		if err := v.walkStmts(s.Then); err != nil {
			return err
		}
		return v.walkStmts(s.Else)
	case *ast.NumberForStmt:
		for _, ex := range []ast.Expr{s.Init, s.Limit, s.Step} {
			if ex == nil {
				continue
			}
			if err := v.walkExpr(ex); err != nil {
				return err
			}
		}
		return v.walkStmts(s.Stmts)
	case *ast.GenericForStmt:
		if err := v.walkExprs(s.Exprs); err != nil {
			return err
		}
		return v.walkStmts(s.Stmts)
	case *ast.ReturnStmt:
		return v.walkExprs(s.Exprs)
	case *ast.BreakStmt:
		return nil
	case *ast.FuncDefStmt:
		return &violation{s.Line(), "function definitions are not allowed"}
	case *ast.LabelStmt:
		return &violation{s.Line(), "labels are not allowed"}
	case *ast.GotoStmt:
		return &violation{s.Line(), "goto is not allowed"}
	default:
		// Fail closed: a statement kind this walker does not know is not
		// allowed through.
		return &violation{st.Line(), fmt.Sprintf("unsupported statement: %T", st)}
	}
}

func (v *Validator) walkExprs(exprs []ast.Expr) error {
	for _, ex := range exprs {
		if err := v.walkExpr(ex); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) walkExpr(ex ast.Expr) error {
	switch e := ex.(type) {
	case *ast.TrueExpr, *ast.FalseExpr, *ast.NilExpr,
		*ast.NumberExpr, *ast.StringExpr, *ast.Comma3Expr:
		return nil
	case *ast.IdentExpr:
		if v.pol.IsGlobalDenied(e.Value) {
			return &violation{e.Line(), fmt.Sprintf("identifier %q is not allowed", e.Value)}
		}
		return nil
	case *ast.AttrGetExpr:
		if key, ok := e.Key.(*ast.StringExpr); ok && v.pol.IsFieldDenied(key.Value) {
			return &violation{e.Line(), fmt.Sprintf("field %q is not allowed", key.Value)}
		}
		if err := v.walkExpr(e.Object); err != nil {
			return err
		}
		return v.walkExpr(e.Key)
	case *ast.TableExpr:
		for _, f := range e.Fields {
			if f.Key != nil {
				if err := v.walkExpr(f.Key); err != nil {
					return err
				}
			}
			if err := v.walkExpr(f.Value); err != nil {
				return err
			}
		}
		return nil
	case *ast.FuncCallExpr:
		return v.walkCall(e)
	case *ast.LogicalOpExpr:
		if err := v.walkExpr(e.Lhs); err != nil {
			return err
		}
		return v.walkExpr(e.Rhs)
	case *ast.RelationalOpExpr:
		if err := v.walkExpr(e.Lhs); err != nil {
			return err
		}
		return v.walkExpr(e.Rhs)
	case *ast.StringConcatOpExpr:
		if err := v.walkExpr(e.Lhs); err != nil {
			return err
		}
		return v.walkExpr(e.Rhs)
	case *ast.ArithmeticOpExpr:
		if err := v.walkExpr(e.Lhs); err != nil {
			return err
		}
		return v.walkExpr(e.Rhs)
	case *ast.UnaryMinusOpExpr:
		return v.walkExpr(e.Expr)
	case *ast.UnaryNotOpExpr:
		return v.walkExpr(e.Expr)
	case *ast.UnaryLenOpExpr:
		return v.walkExpr(e.Expr)
	case *ast.FunctionExpr:
		return &violation{e.Line(), "function definitions are not allowed"}
	default:
		return &violation{ex.Line(), fmt.Sprintf("unsupported expression: %T", ex)}
	}
}

// walkCall checks call expressions. require gets a dedicated import check;
// bare denied identifiers in call position are rejected explicitly even
// though walkExpr would catch them, matching the layered checks on names.
func (v *Validator) walkCall(call *ast.FuncCallExpr) error {
	if ident, ok := call.Func.(*ast.IdentExpr); ok {
		if ident.Value == "require" {
			return v.checkRequire(call)
		}
		if v.pol.IsGlobalDenied(ident.Value) {
			return &violation{call.Line(), fmt.Sprintf("call to %q is not allowed", ident.Value)}
		}
	}
	if call.Method != "" && v.pol.IsFieldDenied(call.Method) {
		return &violation{call.Line(), fmt.Sprintf("method %q is not allowed", call.Method)}
	}
	if call.Receiver != nil {
		if err := v.walkExpr(call.Receiver); err != nil {
			return err
		}
	}
	if call.Func != nil {
		if err := v.walkExpr(call.Func); err != nil {
			return err
		}
	}
	return v.walkExprs(call.Args)
}

func (v *Validator) checkRequire(call *ast.FuncCallExpr) error {
	if len(call.Args) != 1 {
		return &violation{call.Line(), "require takes a single literal module name"}
	}
	lit, ok := call.Args[0].(*ast.StringExpr)
	if !ok {
		return &violation{call.Line(), "require with a computed module name is not allowed"}
	}
	if !v.pol.IsModuleAllowed(lit.Value) {
		return &violation{call.Line(), fmt.Sprintf("module %q is not allowed", lit.Value)}
	}
	return nil
}
