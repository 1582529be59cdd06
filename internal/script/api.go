package script

import (
	"errors"
	"io"

	lua "github.com/yuin/gopher-lua"
)

// module builds the doc table.
func (r *runner) module(L *lua.LState) *lua.LTable {
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"len":       r.luaLen,
		"read":      r.luaRead,
		"text":      r.luaText,
		"insert":    r.luaInsert,
		"delete":    r.luaDelete,
		"replace":   r.luaReplace,
		"undo":      r.luaUndo,
		"redo":      r.luaRedo,
		"stats":     r.luaStats,
		"linebreak": r.luaLinebreak,
		"group":     r.luaGroup,
	})
}

// raise aborts the script with err, remembering it for Run's result.
func (r *runner) raise(L *lua.LState, err error) int {
	r.lastErr = err
	L.RaiseError("%s", err.Error())
	return 0
}

func (r *runner) luaLen(L *lua.LState) int {
	L.Push(lua.LNumber(r.doc.Len()))
	return 1
}

func (r *runner) luaRead(L *lua.LState) int {
	pos := L.CheckInt(1)
	n := L.OptInt(2, -1)
	b, err := r.doc.Read(pos, n)
	if err != nil && !errors.Is(err, io.EOF) {
		return r.raise(L, err)
	}
	L.Push(lua.LString(b))
	return 1
}

func (r *runner) luaText(L *lua.LState) int {
	s, err := r.doc.Text()
	if err != nil {
		return r.raise(L, err)
	}
	L.Push(lua.LString(s))
	return 1
}

func (r *runner) luaInsert(L *lua.LState) int {
	pos := L.CheckInt(1)
	s := L.CheckString(2)
	if err := r.doc.Insert(pos, []byte(s)); err != nil {
		return r.raise(L, err)
	}
	r.edits++
	return 0
}

func (r *runner) luaDelete(L *lua.LState) int {
	begin := L.CheckInt(1)
	end := L.CheckInt(2)
	if err := r.doc.Delete(begin, end); err != nil {
		return r.raise(L, err)
	}
	r.edits++
	return 0
}

func (r *runner) luaReplace(L *lua.LState) int {
	begin := L.CheckInt(1)
	end := L.CheckInt(2)
	s := L.CheckString(3)
	if err := r.doc.Replace(begin, end, []byte(s)); err != nil {
		return r.raise(L, err)
	}
	r.edits++
	return 0
}

func (r *runner) luaUndo(L *lua.LState) int {
	return r.step(L, r.doc.Undo)
}

func (r *runner) luaRedo(L *lua.LState) int {
	return r.step(L, r.doc.Redo)
}

func (r *runner) step(L *lua.LState, fn func() error) int {
	err := fn()
	if err != nil && !isEmptyHistory(err) {
		return r.raise(L, err)
	}
	L.Push(lua.LBool(err == nil))
	return 1
}

func (r *runner) luaStats(L *lua.LState) int {
	st := r.doc.Statistics()
	t := L.NewTable()
	t.RawSetString("lines", lua.LNumber(st.LineBreaks))
	t.RawSetString("words", lua.LNumber(st.Words))
	L.Push(t)
	return 1
}

func (r *runner) luaLinebreak(L *lua.LState) int {
	L.Push(lua.LString(r.doc.LineStd().Sequence()))
	return 1
}

// luaGroup runs fn with its edits recorded as one undo step. If fn raises,
// the group's edits are rolled back and the error propagates.
func (r *runner) luaGroup(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	r.doc.BeginGroup(name)
	L.Push(fn)
	if err := L.PCall(0, 0, nil); err != nil {
		if cerr := r.doc.CancelGroup(); cerr != nil {
			return r.raise(L, cerr)
		}
		var apiErr *lua.ApiError
		if errors.As(err, &apiErr) {
			L.Error(apiErr.Object, 0)
			return 0
		}
		L.RaiseError("%s", err.Error())
		return 0
	}
	r.doc.EndGroup()
	return 0
}
