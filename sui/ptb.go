package sui

import (
	"fmt"
)

// ArgumentKind is the variant of a PTB argument.
type ArgumentKind uint8

const (
	ArgGasCoin ArgumentKind = iota
	ArgInput
	ArgResult
	ArgNestedResult
)

// Argument 引用交易输入或前序命令的结果。
type Argument struct {
	Kind   ArgumentKind
	Index  uint16
	Nested uint16
}

func (a Argument) encode(e *Encoder) {
	e.ULEB128(uint64(a.Kind))
	switch a.Kind {
	case ArgInput, ArgResult:
		e.U16(a.Index)
	case ArgNestedResult:
		e.U16(a.Index)
		e.U16(a.Nested)
	}
}

// ObjectArgKind distinguishes owned and shared object inputs.
type ObjectArgKind uint8

const (
	ImmOrOwnedObject ObjectArgKind = iota
	SharedObject
)

// ObjectArg 描述一个对象输入。owned 对象需要完整引用，shared 对象需要初始共享版本。
type ObjectArg struct {
	Kind                 ObjectArgKind
	Ref                  ObjectRef // ImmOrOwnedObject
	ID                   ObjectID  // SharedObject
	InitialSharedVersion uint64
	Mutable              bool
}

// Owned returns an ImmOrOwned object argument.
func Owned(ref ObjectRef) ObjectArg {
	return ObjectArg{Kind: ImmOrOwnedObject, Ref: ref}
}

// Shared returns a shared object argument.
func Shared(id ObjectID, initialSharedVersion uint64, mutable bool) ObjectArg {
	return ObjectArg{Kind: SharedObject, ID: id, InitialSharedVersion: initialSharedVersion, Mutable: mutable}
}

func (o ObjectArg) objectID() ObjectID {
	if o.Kind == SharedObject {
		return o.ID
	}
	return o.Ref.ID
}

func (o ObjectArg) encode(e *Encoder) {
	e.ULEB128(uint64(o.Kind))
	if o.Kind == SharedObject {
		e.Address(o.ID)
		e.U64(o.InitialSharedVersion)
		e.Bool(o.Mutable)
		return
	}
	o.Ref.encode(e)
}

// CallArg is a transaction input: pure bytes or an object.
type CallArg struct {
	Pure   []byte
	Object *ObjectArg
}

func (c CallArg) encode(e *Encoder) {
	if c.Object != nil {
		e.ULEB128(1)
		c.Object.encode(e)
		return
	}
	e.ULEB128(0)
	e.Bytes(c.Pure)
}

// MoveCall is a ProgrammableMoveCall command.
type MoveCall struct {
	Package       ObjectID
	Module        string
	Function      string
	TypeArguments []TypeTag
	Arguments     []Argument
}

func (m MoveCall) encode(e *Encoder) {
	// Command::MoveCall
	e.ULEB128(0)
	e.Address(m.Package)
	e.String(m.Module)
	e.String(m.Function)
	e.ULEB128(uint64(len(m.TypeArguments)))
	for _, t := range m.TypeArguments {
		t.encode(e)
	}
	e.ULEB128(uint64(len(m.Arguments)))
	for _, a := range m.Arguments {
		a.encode(e)
	}
}

// ProgrammableTransaction is the finished PTB.
type ProgrammableTransaction struct {
	Inputs   []CallArg
	Commands []MoveCall
}

func (pt ProgrammableTransaction) encode(e *Encoder) {
	e.ULEB128(uint64(len(pt.Inputs)))
	for _, in := range pt.Inputs {
		in.encode(e)
	}
	e.ULEB128(uint64(len(pt.Commands)))
	for _, c := range pt.Commands {
		c.encode(e)
	}
}

// MarshalKind 序列化为 TransactionKind，用于 devInspect。
func (pt ProgrammableTransaction) MarshalKind() []byte {
	e := NewEncoder()
	// TransactionKind::ProgrammableTransaction
	e.ULEB128(0)
	pt.encode(e)
	return e.Data()
}

// PTBBuilder 组装可编程交易：对象输入去重，命令按顺序追加。
type PTBBuilder struct {
	inputs   []CallArg
	objIdx   map[ObjectID]uint16
	commands []MoveCall
}

func NewPTBBuilder() *PTBBuilder {
	return &PTBBuilder{objIdx: make(map[ObjectID]uint16)}
}

// Pure adds a pure input. Pure inputs are never shared between arguments so
// that each use keeps its own Move type.
func (b *PTBBuilder) Pure(v []byte) Argument {
	idx := uint16(len(b.inputs))
	b.inputs = append(b.inputs, CallArg{Pure: append([]byte(nil), v...)})
	return Argument{Kind: ArgInput, Index: idx}
}

// Object adds (or reuses) an object input. A shared object referenced both
// mutably and immutably is upgraded to mutable.
func (b *PTBBuilder) Object(o ObjectArg) (Argument, error) {
	id := o.objectID()
	if idx, ok := b.objIdx[id]; ok {
		prev := b.inputs[idx].Object
		if prev.Kind != o.Kind {
			return Argument{}, fmt.Errorf("object %s used as both owned and shared", id)
		}
		if o.Kind == SharedObject {
			if prev.InitialSharedVersion != o.InitialSharedVersion {
				return Argument{}, fmt.Errorf("object %s: conflicting initial shared version", id)
			}
			prev.Mutable = prev.Mutable || o.Mutable
		} else if prev.Ref != o.Ref {
			return Argument{}, fmt.Errorf("object %s: conflicting references", id)
		}
		return Argument{Kind: ArgInput, Index: idx}, nil
	}
	idx := uint16(len(b.inputs))
	obj := o
	b.inputs = append(b.inputs, CallArg{Object: &obj})
	b.objIdx[id] = idx
	return Argument{Kind: ArgInput, Index: idx}, nil
}

// MoveCall appends a move call and returns its result argument.
func (b *PTBBuilder) MoveCall(pkg ObjectID, module, function string, typeArgs []TypeTag, args []Argument) Argument {
	idx := uint16(len(b.commands))
	b.commands = append(b.commands, MoveCall{
		Package:       pkg,
		Module:        module,
		Function:      function,
		TypeArguments: typeArgs,
		Arguments:     args,
	})
	return Argument{Kind: ArgResult, Index: idx}
}

// Finish returns the transaction built so far.
func (b *PTBBuilder) Finish() ProgrammableTransaction {
	return ProgrammableTransaction{
		Inputs:   append([]CallArg(nil), b.inputs...),
		Commands: append([]MoveCall(nil), b.commands...),
	}
}
