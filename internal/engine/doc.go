// Package engine provides Document, the facade the rest of txt edits
// through.
//
// A Document combines a piece-table sequence, its undo/redo history and,
// when opened from a path, the file manager that persists it. Positions are
// byte offsets; the engine never splits or joins text on its own, so callers
// that care about characters use ReadClusters or sequence.IsContinuation.
//
// # Thread Safety
//
// Every Document method takes the document's mutex, so an edit can never
// run while a save is streaming the content to disk.
//
// # Basic Usage
//
//	doc, err := engine.Open("notes.txt", engine.WithLineStd(sequence.Linux))
//	if err != nil {
//	    return err
//	}
//	defer doc.Close()
//
//	doc.Insert(0, []byte("hello"))
//	doc.Insert(5, []byte(" world"))
//	doc.Undo() // "hello"
//	doc.Redo() // "hello world"
//
//	st := doc.Statistics() // lines and words, maintained incrementally
//
//	if err := doc.Save(); err != nil {
//	    if p, ok := errors.BackupPath(err); ok {
//	        fmt.Println("previous content preserved in", p)
//	    }
//	}
//
// # Undo Groups
//
//	doc.BeginGroup("rename")
//	doc.Replace(0, 3, []byte("new"))
//	doc.Replace(10, 13, []byte("new"))
//	doc.EndGroup() // one Undo reverts both
package engine
