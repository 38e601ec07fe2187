package interp

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/flowby-lang/flowby/token"
)

type builtinFn = func(in *Interp, pos token.Position, args []Value) (Value, error)

// builtinTable maps builtin names to implementations. The resolver seeds its
// ambient scope from the same table so scripts can shadow any of these.
var builtinTable = map[string]builtinFn{
	"print":    builtinPrint,
	"len":      builtinLen,
	"str":      builtinStr,
	"int":      builtinInt,
	"float":    builtinFloat,
	"range":    builtinRange,
	"keys":     builtinKeys,
	"values":   builtinValues,
	"append":   builtinAppend,
	"contains": builtinContains,
	"lower":    builtinLower,
	"upper":    builtinUpper,
	"trim":     builtinTrim,
	"split":    builtinSplit,
	"join":     builtinJoin,
	"env":      builtinEnv,
}

// BuiltinNames returns the names of all builtins, for seeding the resolver's
// ambient scope.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinTable))
	for name := range builtinTable {
		names = append(names, name)
	}
	return names
}

func installBuiltins(env *Env) {
	for name, fn := range builtinTable {
		env.Declare(name, &Builtin{Name: name, Fn: fn})
	}
}

func arity(in *Interp, pos token.Position, name string, args []Value, want int) error {
	if len(args) != want {
		return in.runtimeErr(ArityMismatch, pos,
			"%s takes %d argument(s), got %d", name, want, len(args))
	}
	return nil
}

func builtinPrint(in *Interp, pos token.Position, args []Value) (Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Display()
	}
	if _, err := fmt.Fprintln(in.stdout, strings.Join(parts, " ")); err != nil {
		return nil, in.runtimeErr(TypeMismatch, pos, "print failed: %v", err)
	}
	return None{}, nil
}

func builtinLen(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "len", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case Str:
		return Int(len([]rune(string(v)))), nil
	case *List:
		return Int(len(v.Items)), nil
	case *Dict:
		return Int(v.Len()), nil
	default:
		return nil, in.runtimeErr(TypeMismatch, pos, "len of %s", args[0].Kind())
	}
}

func builtinStr(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "str", args, 1); err != nil {
		return nil, err
	}
	return Str(args[0].Display()), nil
}

func builtinInt(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "int", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case Int:
		return v, nil
	case Float:
		return Int(v), nil
	case Bool:
		if v {
			return Int(1), nil
		}
		return Int(0), nil
	case Str:
		n, err := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		if err != nil {
			return nil, in.runtimeErr(TypeMismatch, pos, "cannot convert %q to Int", string(v))
		}
		return Int(n), nil
	default:
		return nil, in.runtimeErr(TypeMismatch, pos, "cannot convert %s to Int", args[0].Kind())
	}
}

func builtinFloat(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "float", args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case Float:
		return v, nil
	case Int:
		return Float(v), nil
	case Str:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil {
			return nil, in.runtimeErr(TypeMismatch, pos, "cannot convert %q to Float", string(v))
		}
		return Float(f), nil
	default:
		return nil, in.runtimeErr(TypeMismatch, pos, "cannot convert %s to Float", args[0].Kind())
	}
}

// builtinRange mirrors the common range(stop), range(start, stop) and
// range(start, stop, step) forms, always producing a List of Int.
func builtinRange(in *Interp, pos token.Position, args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 3 {
		return nil, in.runtimeErr(ArityMismatch, pos,
			"range takes 1 to 3 arguments, got %d", len(args))
	}
	nums := make([]int64, len(args))
	for i, a := range args {
		n, ok := a.(Int)
		if !ok {
			return nil, in.runtimeErr(TypeMismatch, pos,
				"range arguments must be Int, got %s", a.Kind())
		}
		nums[i] = int64(n)
	}

	start, stop, step := int64(0), int64(0), int64(1)
	switch len(nums) {
	case 1:
		stop = nums[0]
	case 2:
		start, stop = nums[0], nums[1]
	case 3:
		start, stop, step = nums[0], nums[1], nums[2]
	}
	if step == 0 {
		return nil, in.runtimeErr(TypeMismatch, pos, "range step cannot be zero")
	}

	list := &List{}
	if step > 0 {
		for i := start; i < stop; i += step {
			list.Items = append(list.Items, Int(i))
		}
	} else {
		for i := start; i > stop; i += step {
			list.Items = append(list.Items, Int(i))
		}
	}
	return list, nil
}

func builtinKeys(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "keys", args, 1); err != nil {
		return nil, err
	}
	dict, ok := args[0].(*Dict)
	if !ok {
		return nil, in.runtimeErr(TypeMismatch, pos, "keys of %s", args[0].Kind())
	}
	list := &List{}
	for _, k := range dict.Keys() {
		list.Items = append(list.Items, Str(k))
	}
	return list, nil
}

func builtinValues(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "values", args, 1); err != nil {
		return nil, err
	}
	dict, ok := args[0].(*Dict)
	if !ok {
		return nil, in.runtimeErr(TypeMismatch, pos, "values of %s", args[0].Kind())
	}
	list := &List{}
	for _, k := range dict.Keys() {
		v, _ := dict.Get(k)
		list.Items = append(list.Items, v)
	}
	return list, nil
}

// builtinAppend mutates the list in place and returns it.
func builtinAppend(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "append", args, 2); err != nil {
		return nil, err
	}
	list, ok := args[0].(*List)
	if !ok {
		return nil, in.runtimeErr(TypeMismatch, pos, "append to %s", args[0].Kind())
	}
	list.Items = append(list.Items, args[1])
	return list, nil
}

func builtinContains(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "contains", args, 2); err != nil {
		return nil, err
	}
	switch container := args[0].(type) {
	case Str:
		needle, ok := args[1].(Str)
		if !ok {
			return nil, in.runtimeErr(TypeMismatch, pos,
				"contains on Str needs a Str, got %s", args[1].Kind())
		}
		return Bool(strings.Contains(string(container), string(needle))), nil
	case *List:
		for _, item := range container.Items {
			if Equals(item, args[1]) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	case *Dict:
		key, ok := args[1].(Str)
		if !ok {
			return nil, in.runtimeErr(TypeMismatch, pos,
				"contains on Dict needs a Str key, got %s", args[1].Kind())
		}
		_, found := container.Get(string(key))
		return Bool(found), nil
	default:
		return nil, in.runtimeErr(TypeMismatch, pos, "contains on %s", args[0].Kind())
	}
}

func stringArg(in *Interp, pos token.Position, name string, v Value) (string, error) {
	s, ok := v.(Str)
	if !ok {
		return "", in.runtimeErr(TypeMismatch, pos, "%s needs a Str, got %s", name, v.Kind())
	}
	return string(s), nil
}

func builtinLower(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "lower", args, 1); err != nil {
		return nil, err
	}
	s, err := stringArg(in, pos, "lower", args[0])
	if err != nil {
		return nil, err
	}
	return Str(strings.ToLower(s)), nil
}

func builtinUpper(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "upper", args, 1); err != nil {
		return nil, err
	}
	s, err := stringArg(in, pos, "upper", args[0])
	if err != nil {
		return nil, err
	}
	return Str(strings.ToUpper(s)), nil
}

func builtinTrim(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "trim", args, 1); err != nil {
		return nil, err
	}
	s, err := stringArg(in, pos, "trim", args[0])
	if err != nil {
		return nil, err
	}
	return Str(strings.TrimSpace(s)), nil
}

func builtinSplit(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "split", args, 2); err != nil {
		return nil, err
	}
	s, err := stringArg(in, pos, "split", args[0])
	if err != nil {
		return nil, err
	}
	sep, err := stringArg(in, pos, "split separator", args[1])
	if err != nil {
		return nil, err
	}
	list := &List{}
	for _, part := range strings.Split(s, sep) {
		list.Items = append(list.Items, Str(part))
	}
	return list, nil
}

func builtinJoin(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "join", args, 2); err != nil {
		return nil, err
	}
	list, ok := args[0].(*List)
	if !ok {
		return nil, in.runtimeErr(TypeMismatch, pos, "join needs a List, got %s", args[0].Kind())
	}
	sep, err := stringArg(in, pos, "join separator", args[1])
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(list.Items))
	for i, item := range list.Items {
		parts[i] = item.Display()
	}
	return Str(strings.Join(parts, sep)), nil
}

// builtinEnv reads a host environment variable, returning "" when unset.
func builtinEnv(in *Interp, pos token.Position, args []Value) (Value, error) {
	if err := arity(in, pos, "env", args, 1); err != nil {
		return nil, err
	}
	name, err := stringArg(in, pos, "env", args[0])
	if err != nil {
		return nil, err
	}
	return Str(os.Getenv(name)), nil
}
