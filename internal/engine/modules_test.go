package engine

// Hand-assembled guest modules used by the executor tests.

// echoWasm commits its input unchanged.
//
//	(module
//	  (import "env" "input_len" (func $input_len (result i32)))
//	  (import "env" "read_input" (func $read_input (param i32)))
//	  (import "env" "commit" (func $commit (param i32 i32)))
//	  (memory (export "memory") 1)
//	  (func (export "main")
//	    (call $read_input (i32.const 0))
//	    (call $commit (i32.const 0) (call $input_len))))
var echoWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x11, 0x04, 0x60,
	0x00, 0x01, 0x7f, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x02, 0x7f, 0x7f, 0x00,
	0x60, 0x00, 0x00, 0x02, 0x2f, 0x03, 0x03, 0x65, 0x6e, 0x76, 0x09, 0x69,
	0x6e, 0x70, 0x75, 0x74, 0x5f, 0x6c, 0x65, 0x6e, 0x00, 0x00, 0x03, 0x65,
	0x6e, 0x76, 0x0a, 0x72, 0x65, 0x61, 0x64, 0x5f, 0x69, 0x6e, 0x70, 0x75,
	0x74, 0x00, 0x01, 0x03, 0x65, 0x6e, 0x76, 0x06, 0x63, 0x6f, 0x6d, 0x6d,
	0x69, 0x74, 0x00, 0x02, 0x03, 0x02, 0x01, 0x03, 0x05, 0x03, 0x01, 0x00,
	0x01, 0x07, 0x11, 0x02, 0x04, 0x6d, 0x61, 0x69, 0x6e, 0x00, 0x03, 0x06,
	0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00, 0x0a, 0x0e, 0x01, 0x0c,
	0x00, 0x41, 0x00, 0x10, 0x01, 0x41, 0x00, 0x10, 0x00, 0x10, 0x02, 0x0b,
}

// commitThenAbortWasm commits its input, then calls abort.
var commitThenAbortWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x11, 0x04, 0x60,
	0x00, 0x01, 0x7f, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x02, 0x7f, 0x7f, 0x00,
	0x60, 0x00, 0x00, 0x02, 0x3b, 0x04, 0x03, 0x65, 0x6e, 0x76, 0x09, 0x69,
	0x6e, 0x70, 0x75, 0x74, 0x5f, 0x6c, 0x65, 0x6e, 0x00, 0x00, 0x03, 0x65,
	0x6e, 0x76, 0x0a, 0x72, 0x65, 0x61, 0x64, 0x5f, 0x69, 0x6e, 0x70, 0x75,
	0x74, 0x00, 0x01, 0x03, 0x65, 0x6e, 0x76, 0x06, 0x63, 0x6f, 0x6d, 0x6d,
	0x69, 0x74, 0x00, 0x02, 0x03, 0x65, 0x6e, 0x76, 0x05, 0x61, 0x62, 0x6f,
	0x72, 0x74, 0x00, 0x03, 0x03, 0x02, 0x01, 0x03, 0x05, 0x03, 0x01, 0x00,
	0x01, 0x07, 0x11, 0x02, 0x04, 0x6d, 0x61, 0x69, 0x6e, 0x00, 0x04, 0x06,
	0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00, 0x0a, 0x10, 0x01, 0x0e,
	0x00, 0x41, 0x00, 0x10, 0x01, 0x41, 0x00, 0x10, 0x00, 0x10, 0x02, 0x10,
	0x03, 0x0b,
}

// trapWasm executes unreachable.
var trapWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x11, 0x04, 0x60,
	0x00, 0x01, 0x7f, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x02, 0x7f, 0x7f, 0x00,
	0x60, 0x00, 0x00, 0x03, 0x02, 0x01, 0x03, 0x07, 0x08, 0x01, 0x04, 0x6d,
	0x61, 0x69, 0x6e, 0x00, 0x00, 0x0a, 0x05, 0x01, 0x03, 0x00, 0x00, 0x0b,
}

// noCommitWasm returns without committing.
var noCommitWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x11, 0x04, 0x60,
	0x00, 0x01, 0x7f, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x02, 0x7f, 0x7f, 0x00,
	0x60, 0x00, 0x00, 0x03, 0x02, 0x01, 0x03, 0x07, 0x08, 0x01, 0x04, 0x6d,
	0x61, 0x69, 0x6e, 0x00, 0x00, 0x0a, 0x04, 0x01, 0x02, 0x00, 0x0b,
}

// doubleCommitWasm commits its input twice.
var doubleCommitWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x11, 0x04, 0x60,
	0x00, 0x01, 0x7f, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x02, 0x7f, 0x7f, 0x00,
	0x60, 0x00, 0x00, 0x02, 0x2f, 0x03, 0x03, 0x65, 0x6e, 0x76, 0x09, 0x69,
	0x6e, 0x70, 0x75, 0x74, 0x5f, 0x6c, 0x65, 0x6e, 0x00, 0x00, 0x03, 0x65,
	0x6e, 0x76, 0x0a, 0x72, 0x65, 0x61, 0x64, 0x5f, 0x69, 0x6e, 0x70, 0x75,
	0x74, 0x00, 0x01, 0x03, 0x65, 0x6e, 0x76, 0x06, 0x63, 0x6f, 0x6d, 0x6d,
	0x69, 0x74, 0x00, 0x02, 0x03, 0x02, 0x01, 0x03, 0x05, 0x03, 0x01, 0x00,
	0x01, 0x07, 0x11, 0x02, 0x04, 0x6d, 0x61, 0x69, 0x6e, 0x00, 0x03, 0x06,
	0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00, 0x0a, 0x18, 0x01, 0x16,
	0x00, 0x41, 0x00, 0x10, 0x01, 0x41, 0x00, 0x10, 0x00, 0x10, 0x02, 0x41,
	0x00, 0x10, 0x01, 0x41, 0x00, 0x10, 0x00, 0x10, 0x02, 0x0b,
}
