package ir

import (
	"fmt"
	"strings"
)

// Intrinsic identifies a host operation invoked by OpIntrinsic.
// Values are part of the bytecode format.
type Intrinsic uint32

const (
	IntrinsicPrintInt    Intrinsic = 0
	IntrinsicPrintString Intrinsic = 1
	IntrinsicExit        Intrinsic = 2
	IntrinsicPrintFloat  Intrinsic = 3
	IntrinsicPrint       Intrinsic = 4
	IntrinsicPrintln     Intrinsic = 5
	IntrinsicConcat      Intrinsic = 6
	IntrinsicLen         Intrinsic = 7
	IntrinsicItof        Intrinsic = 8
	IntrinsicFtoi        Intrinsic = 9
	IntrinsicToString    Intrinsic = 10
	IntrinsicReadLine    Intrinsic = 11
	IntrinsicArgc        Intrinsic = 12
	IntrinsicArgv        Intrinsic = 13

	intrinsicCount = 14
)

var intrinsicNames = [intrinsicCount]string{
	IntrinsicPrintInt:    "print_int",
	IntrinsicPrintString: "print_string",
	IntrinsicExit:        "exit",
	IntrinsicPrintFloat:  "print_float",
	IntrinsicPrint:       "print",
	IntrinsicPrintln:     "println",
	IntrinsicConcat:      "concat",
	IntrinsicLen:         "len",
	IntrinsicItof:        "itof",
	IntrinsicFtoi:        "ftoi",
	IntrinsicToString:    "to_string",
	IntrinsicReadLine:    "read_line",
	IntrinsicArgc:        "argc",
	IntrinsicArgv:        "argv",
}

// Valid reports whether in names a known intrinsic.
func (in Intrinsic) Valid() bool {
	return in < intrinsicCount
}

func (in Intrinsic) String() string {
	if in.Valid() {
		return intrinsicNames[in]
	}
	return fmt.Sprintf("intrinsic(%d)", uint32(in))
}

// LookupIntrinsic resolves an intrinsic by name, ignoring case.
func LookupIntrinsic(name string) (Intrinsic, bool) {
	name = strings.ToLower(name)
	for i, n := range intrinsicNames {
		if n == name {
			return Intrinsic(i), true
		}
	}
	return 0, false
}
