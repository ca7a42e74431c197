package gvm

// haltSignal unwinds every active call() frame back to Run without being
// treated as a runtime failure: HALT terminates the VM unconditionally,
// wherever it's reached, rather than just returning from the current
// function.
type haltSignal struct{ value Value }

func (haltSignal) Error() string { return "halt" }

// callFrame is one activation record: which module/function is running,
// its bytecode and instruction pointer, and the Locals base to restore
// on return. Frames are kept in Interp.frames purely for stack-trace
// rendering; the actual call/return control flow lives in call()'s Go
// stack (for CALL) or its internal loop (for TAILCALL).
type callFrame struct {
	owner    poolOwner
	function string
	code     []byte
	ip       int
	done     bool

	savedBase int
}

func (f *callFrame) u8() (uint8, error) {
	if f.ip >= len(f.code) {
		return 0, newErr(MalformedModule, "operand read past end of bytecode")
	}
	b := f.code[f.ip]
	f.ip++
	return b, nil
}

func (f *callFrame) u16() (uint16, error) {
	if f.ip+2 > len(f.code) {
		return 0, newErr(MalformedModule, "operand read past end of bytecode")
	}
	v := uint16(f.code[f.ip])<<8 | uint16(f.code[f.ip+1])
	f.ip += 2
	return v, nil
}

func (f *callFrame) i32() (int32, error) {
	if f.ip+4 > len(f.code) {
		return 0, newErr(MalformedModule, "operand read past end of bytecode")
	}
	v := uint32(f.code[f.ip])<<24 | uint32(f.code[f.ip+1])<<16 | uint32(f.code[f.ip+2])<<8 | uint32(f.code[f.ip+3])
	f.ip += 4
	return int32(v), nil
}

// Interp is one VM execution: a Context to resolve symbols against, an
// operand Stack, a Locals vector and a Heap, plus the active call chain
// for diagnostics.
type Interp struct {
	ctx    *Context
	Stack  *Stack
	Locals *Locals
	Heap   *Heap

	frames []*callFrame

	// DebugHook, when set, runs before every instruction; the --debug
	// REPL installs Debugger.Before here.
	DebugHook func(i *Interp, frame *callFrame) error
}

// NewInterp wires a Context to a fresh Stack/Locals/Heap, ready to Run
// an entrypoint.
func NewInterp(ctx *Context, stackCapacity int, heap *Heap) *Interp {
	return &Interp{
		ctx:    ctx,
		Stack:  NewStack(stackCapacity),
		Locals: NewLocals(),
		Heap:   heap,
	}
}

// Run calls module:function with args and returns its result, or the
// Value HALT carried if execution halted instead of returning normally.
func (i *Interp) Run(module, function string, args []Value) (Value, error) {
	f, err := i.ctx.Function(module, function)
	if err != nil {
		return Null, err
	}
	mod, err := i.ctx.Module(module)
	if err != nil {
		return Null, err
	}
	v, err := i.call(mod, f, args)
	if halt, ok := err.(haltSignal); ok {
		return halt.value, nil
	}
	return v, err
}

// StackTrace renders the active call chain: the
// innermost frame as "At unit:function%ip", each enclosing frame as
// "  ~unit:function%return_ip", most recently called last.
func (i *Interp) StackTrace() string {
	if len(i.frames) == 0 {
		return ""
	}
	top := i.frames[len(i.frames)-1]
	out := "At " + top.owner.unitName() + ":" + top.function + "%" + itoa(top.ip) + "\n"
	for n := 0; n < len(i.frames)-1; n++ {
		fr := i.frames[n]
		out += "  ~" + fr.owner.unitName() + ":" + fr.function + "%" + itoa(fr.ip) + "\n"
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

func (i *Interp) popArgs(n int) ([]Value, error) {
	args := make([]Value, n)
	for idx := n - 1; idx >= 0; idx-- {
		v, err := i.Stack.Pop()
		if err != nil {
			return nil, err
		}
		args[idx] = v
	}
	return args, nil
}

// resolveFunction resolves a CALL/TAILCALL pool index to its target
// Context function and declaring module name.
func (i *Interp) resolveFunction(owner poolOwner, idx uint16) (string, *Function, error) {
	e, err := owner.poolEntry(idx)
	if err != nil {
		return "", nil, err
	}
	if e.Tag != PoolFunction {
		return "", nil, invalidEntry(int(idx))
	}
	f, err := i.ctx.Function(e.Module, e.Name)
	if err != nil {
		return "", nil, err
	}
	return e.Module, f, nil
}

func (i *Interp) resolveClass(owner poolOwner, idx uint16) (*Class, error) {
	e, err := owner.poolEntry(idx)
	if err != nil {
		return nil, err
	}
	if e.Tag != PoolClass {
		return nil, invalidEntry(int(idx))
	}
	return i.ctx.Class(e.Name)
}

func (i *Interp) resolveFieldName(owner poolOwner, idx uint16) (string, error) {
	e, err := owner.poolEntry(idx)
	if err != nil {
		return "", err
	}
	if e.Tag != PoolField {
		return "", invalidEntry(int(idx))
	}
	return e.Name, nil
}

// call runs f (bytecode or native) and returns its result. TAILCALL is
// implemented as an in-place frame replacement inside the loop below
// rather than a recursive call() invocation, so an iterative function
// written with TAILCALL never grows the Go call stack; CALL does
// recurse, one Go stack frame per Grape call, mirroring how deeply a
// hand-written recursive Go function would nest.
func (i *Interp) call(owner poolOwner, f *Function, args []Value) (Value, error) {
	if f.IsNative() {
		return f.Native(i, args)
	}

	frame := &callFrame{owner: owner, function: f.Name, code: f.Code}
	frame.savedBase = i.Locals.PushFrame(f.LocalCount)
	for idx, a := range args {
		if err := i.Locals.Store(uint16(idx), a); err != nil {
			i.Locals.PopFrame(frame.savedBase)
			return Null, err
		}
	}
	i.frames = append(i.frames, frame)
	defer func() { i.frames = i.frames[:len(i.frames)-1] }()

	for {
		result, halted, err := i.step(frame)
		if err != nil {
			i.Locals.PopFrame(frame.savedBase)
			return Null, err
		}
		if halted {
			i.Locals.PopFrame(frame.savedBase)
			return result, haltSignal{value: result}
		}
		if frame.done {
			i.Locals.PopFrame(frame.savedBase)
			return result, nil
		}
	}
}

// step executes exactly one bytecode instruction, or — for TAILCALL —
// replaces frame's module/function/code/ip/Locals-base in place and
// reports neither done nor halted so call()'s loop continues with the
// new callee. result/halted/err signal RETURN/HALT to call(); frame.done
// marks a normal return.
func (i *Interp) step(frame *callFrame) (result Value, halted bool, err error) {
	if i.Heap.Tick() {
		i.Heap.Collect(i.roots())
	}

	if i.DebugHook != nil {
		if err := i.DebugHook(i, frame); err != nil {
			return Null, false, err
		}
	}

	if frame.ip >= len(frame.code) {
		return Null, false, newErr(MalformedModule, "fell off end of bytecode")
	}
	op := Opcode(frame.code[frame.ip])
	frame.ip++

	switch op {
	case HALT:
		v, _ := i.Stack.Pop()
		return v, true, nil

	case RETURN:
		v, err := i.Stack.Pop()
		if err != nil {
			return Null, false, err
		}
		frame.done = true
		return v, false, nil

	case ICONST_0:
		return Null, false, i.Stack.Push(IntegerValue(0))
	case ICONST_1:
		return Null, false, i.Stack.Push(IntegerValue(1))
	case FCONST_0:
		return Null, false, i.Stack.Push(FloatValue(0))
	case FCONST_1:
		return Null, false, i.Stack.Push(FloatValue(1))
	case CONST_NULL:
		return Null, false, i.Stack.Push(Null)

	case PUSH_BYTE:
		b, err := frame.u8()
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Stack.Push(ByteValue(b))

	case I_PUSH_BYTE:
		b, err := frame.u8()
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Stack.Push(IntegerValue(int32(int8(b))))

	case I_PUSH_SHORT:
		s, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Stack.Push(IntegerValue(int32(int16(s))))

	case LOAD:
		idx, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		v, err := i.Locals.Load(idx)
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Stack.Push(v)
	case LOAD_0, LOAD_1, LOAD_2, LOAD_3:
		v, err := i.Locals.Load(uint16(op - LOAD_0))
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Stack.Push(v)

	case STORE:
		idx, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		v, err := i.Stack.Pop()
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Locals.Store(idx, v)
	case STORE_0, STORE_1, STORE_2, STORE_3:
		v, err := i.Stack.Pop()
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Locals.Store(uint16(op-STORE_0), v)

	case IINC:
		idx, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		delta, err := frame.i32()
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Locals.IInc(idx, delta)

	case DUP:
		return Null, false, i.Stack.Dup()
	case POP:
		_, err := i.Stack.Pop()
		return Null, false, err

	case IADD:
		return Null, false, i.Stack.IAdd()
	case ISUB:
		return Null, false, i.Stack.ISub()
	case IMUL:
		return Null, false, i.Stack.IMul()
	case IDIV:
		return Null, false, i.Stack.IDiv()
	case IREM:
		return Null, false, i.Stack.IRem()
	case IAND:
		return Null, false, i.Stack.IAnd()
	case IOR:
		return Null, false, i.Stack.IOr()
	case IXOR:
		return Null, false, i.Stack.IXor()
	case INEG:
		return Null, false, i.Stack.INeg()
	case IEXP:
		return Null, false, i.Stack.IExp()
	case IS_ZERO:
		return Null, false, i.Stack.IsZero()
	case ISHL:
		return Null, false, i.Stack.IShl()
	case ISHR:
		return Null, false, i.Stack.IShr()
	case IUSHR:
		return Null, false, i.Stack.IUshr()

	case FADD:
		return Null, false, i.Stack.FAdd()
	case FSUB:
		return Null, false, i.Stack.FSub()
	case FMUL:
		return Null, false, i.Stack.FMul()
	case FDIV:
		return Null, false, i.Stack.FDiv()
	case FNEG:
		return Null, false, i.Stack.FNeg()
	case FREM:
		return Null, false, i.Stack.FRem()

	case BADD:
		return Null, false, i.Stack.BAdd()
	case BSUB:
		return Null, false, i.Stack.BSub()
	case BMUL:
		return Null, false, i.Stack.BMul()
	case BDIV:
		return Null, false, i.Stack.BDiv()
	case BREM:
		return Null, false, i.Stack.BRem()
	case BAND:
		return Null, false, i.Stack.BAnd()
	case BOR:
		return Null, false, i.Stack.BOr()
	case BXOR:
		return Null, false, i.Stack.BXor()
	case BSHL:
		return Null, false, i.Stack.BShl()
	case BSHR:
		return Null, false, i.Stack.BShr()
	case BNEG:
		return Null, false, i.Stack.BNeg()

	case I2F:
		return Null, false, i.Stack.I2F()
	case F2I:
		return Null, false, i.Stack.F2I()

	case I_IFEQ, I_IFNEQ, I_IFGT, I_IFGE, I_IFLT, I_IFLE:
		target, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		a, b, err := i.Stack.CompareInt()
		if err != nil {
			return Null, false, err
		}
		taken := false
		switch op {
		case I_IFEQ:
			taken = a == b
		case I_IFNEQ:
			taken = a != b
		case I_IFGT:
			taken = a > b
		case I_IFGE:
			taken = a >= b
		case I_IFLT:
			taken = a < b
		case I_IFLE:
			taken = a <= b
		}
		if taken {
			frame.ip = int(target)
		}
		return Null, false, nil

	case IF_NULL:
		target, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		v, err := i.Stack.Pop()
		if err != nil {
			return Null, false, err
		}
		if v.IsNull() {
			frame.ip = int(target)
		}
		return Null, false, nil

	case IFNOT_NULL:
		target, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		v, err := i.Stack.Pop()
		if err != nil {
			return Null, false, err
		}
		if !v.IsNull() {
			frame.ip = int(target)
		}
		return Null, false, nil

	case GOTO:
		target, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		frame.ip = int(target)
		return Null, false, nil

	case LOADCONST:
		idx, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		entry, err := frame.owner.poolEntry(idx)
		if err != nil {
			return Null, false, err
		}
		v, err := entry.asConstant(i.Heap)
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Stack.Push(v)

	case NEW_ARRAY:
		n, err := i.Stack.PopInt()
		if err != nil {
			return Null, false, err
		}
		if n < 0 {
			return Null, false, newErrf(IndexOutOfBounds, "negative array size %d", n)
		}
		elems := make([]Value, n)
		handle := i.Heap.AllocArray(elems)
		return Null, false, i.Stack.Push(ArrayValue(handle))

	case ARRAY_GET:
		idx, err := i.Stack.PopInt()
		if err != nil {
			return Null, false, err
		}
		arr, err := i.Stack.popTagged(TagArray)
		if err != nil {
			return Null, false, err
		}
		v, err := i.Heap.ArrayGet(arr.Handle(), idx)
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Stack.Push(v)

	case ARRAY_SET:
		v, err := i.Stack.Pop()
		if err != nil {
			return Null, false, err
		}
		idx, err := i.Stack.PopInt()
		if err != nil {
			return Null, false, err
		}
		arr, err := i.Stack.popTagged(TagArray)
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Heap.ArraySet(arr.Handle(), idx, v)

	case NEW_DICT:
		handle := i.Heap.AllocDict()
		return Null, false, i.Stack.Push(DictValue(handle))

	case GET_DICT:
		key, err := i.Stack.Pop()
		if err != nil {
			return Null, false, err
		}
		d, err := i.Stack.popTagged(TagDict)
		if err != nil {
			return Null, false, err
		}
		v, err := i.Heap.DictGet(d.Handle(), key)
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Stack.Push(v)

	case SET_DICT:
		v, err := i.Stack.Pop()
		if err != nil {
			return Null, false, err
		}
		key, err := i.Stack.Pop()
		if err != nil {
			return Null, false, err
		}
		d, err := i.Stack.popTagged(TagDict)
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Heap.DictSet(d.Handle(), key, v)

	case NEW_BYTES:
		length, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		elems := make([]Value, length)
		for idx := int(length) - 1; idx >= 0; idx-- {
			b, err := i.Stack.PopByte()
			if err != nil {
				return Null, false, err
			}
			elems[idx] = ByteValue(b)
		}
		handle := i.Heap.AllocArray(elems)
		return Null, false, i.Stack.Push(ArrayValue(handle))

	case BYTES_PUSH:
		b, err := i.Stack.PopByte()
		if err != nil {
			return Null, false, err
		}
		arr, err := i.Stack.popTagged(TagArray)
		if err != nil {
			return Null, false, err
		}
		if err := i.Heap.ArrayPush(arr.Handle(), ByteValue(b)); err != nil {
			return Null, false, err
		}
		return Null, false, i.Stack.Push(arr)

	case CALL:
		idx, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		argc, err := frame.u8()
		if err != nil {
			return Null, false, err
		}
		entryModule, target, err := i.resolveFunction(frame.owner, idx)
		if err != nil {
			return Null, false, err
		}
		args, err := i.popArgs(int(argc))
		if err != nil {
			return Null, false, err
		}
		targetMod, err := i.ctx.Module(entryModule)
		if err != nil {
			return Null, false, err
		}
		v, err := i.call(targetMod, target, args)
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Stack.Push(v)

	case TAILCALL:
		idx, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		argc, err := frame.u8()
		if err != nil {
			return Null, false, err
		}
		entryModule, target, err := i.resolveFunction(frame.owner, idx)
		if err != nil {
			return Null, false, err
		}
		args, err := i.popArgs(int(argc))
		if err != nil {
			return Null, false, err
		}
		if target.IsNative() {
			v, err := target.Native(i, args)
			if err != nil {
				return Null, false, err
			}
			frame.done = true
			return v, false, nil
		}
		targetMod, err := i.ctx.Module(entryModule)
		if err != nil {
			return Null, false, err
		}
		i.Locals.PopFrame(frame.savedBase)
		frame.savedBase = i.Locals.PushFrame(target.LocalCount)
		for argIdx, a := range args {
			if err := i.Locals.Store(uint16(argIdx), a); err != nil {
				return Null, false, err
			}
		}
		frame.owner = targetMod
		frame.function = target.Name
		frame.code = target.Code
		frame.ip = 0
		return Null, false, nil

	case NEW:
		idx, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		class, err := i.resolveClass(frame.owner, idx)
		if err != nil {
			return Null, false, err
		}
		ctor, ok := class.Method("new")
		if !ok {
			return Null, false, newErrf(FunctionNotFound, "%s.new", class.Name)
		}
		args, err := i.popArgs(int(ctor.ArgCount))
		if err != nil {
			return Null, false, err
		}
		instance := ClassValue(i.Heap.AllocInstance(class))
		callArgs := append([]Value{instance}, args...)
		if _, err := i.call(class, ctor, callArgs); err != nil {
			return Null, false, err
		}
		return Null, false, i.Stack.Push(instance)

	case CALL_METHOD:
		idx, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		argc, err := frame.u8()
		if err != nil {
			return Null, false, err
		}
		entry, err := frame.owner.poolEntry(idx)
		if err != nil {
			return Null, false, err
		}
		methodName := entry.Name
		args, err := i.popArgs(int(argc))
		if err != nil {
			return Null, false, err
		}
		self, err := i.Stack.popTagged(TagClass)
		if err != nil {
			return Null, false, err
		}
		inst, err := i.Heap.Instance(self.Handle())
		if err != nil {
			return Null, false, err
		}
		method, ok := inst.Class.Method(methodName)
		if !ok {
			return Null, false, newErrf(FunctionNotFound, "%s.%s", inst.Class.Name, methodName)
		}
		callArgs := append([]Value{self}, args...)
		v, err := i.call(inst.Class, method, callArgs)
		if err != nil {
			return Null, false, err
		}
		return Null, false, i.Stack.Push(v)

	case GET_FIELD:
		idx, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		fieldName, err := i.resolveFieldName(frame.owner, idx)
		if err != nil {
			return Null, false, err
		}
		self, err := i.Stack.popTagged(TagClass)
		if err != nil {
			return Null, false, err
		}
		inst, err := i.Heap.Instance(self.Handle())
		if err != nil {
			return Null, false, err
		}
		off, ok := inst.Class.FieldOffset(fieldName)
		if !ok {
			return Null, false, newErrf(FieldNotFound, "%s.%s", inst.Class.Name, fieldName)
		}
		return Null, false, i.Stack.Push(inst.Fields[off])

	case SET_FIELD:
		idx, err := frame.u16()
		if err != nil {
			return Null, false, err
		}
		fieldName, err := i.resolveFieldName(frame.owner, idx)
		if err != nil {
			return Null, false, err
		}
		v, err := i.Stack.Pop()
		if err != nil {
			return Null, false, err
		}
		self, err := i.Stack.popTagged(TagClass)
		if err != nil {
			return Null, false, err
		}
		inst, err := i.Heap.Instance(self.Handle())
		if err != nil {
			return Null, false, err
		}
		off, ok := inst.Class.FieldOffset(fieldName)
		if !ok {
			return Null, false, newErrf(FieldNotFound, "%s.%s", inst.Class.Name, fieldName)
		}
		inst.Fields[off] = v
		return Null, false, nil

	default:
		return Null, false, unknownOpcode(byte(op))
	}
}

func (i *Interp) roots() []Value {
	roots := append([]Value{}, i.Stack.Roots()...)
	roots = append(roots, i.Locals.Roots()...)
	return roots
}
