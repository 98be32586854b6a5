package codegen

// writeDump emits the dump routine called by every DUMP. It prints rdi as a
// signed decimal followed by a newline with a single write(2) to stdout.
// The digits are built backwards in a 40-byte stack buffer.
func writeDump(cg *CodeGen) {
	cg.line("dump:")
	cg.op("sub", "rsp", "40")
	cg.op("mov", "rax", "rdi")
	cg.op("lea", "rsi", "[rsp+39]")
	cg.op("mov", "BYTE [rsi]", "10")
	cg.op("mov", "r8", "10")
	cg.op("xor", "r9", "r9")
	cg.op("test", "rax", "rax")
	cg.op("jns", ".digits")
	cg.op("neg", "rax")
	cg.op("mov", "r9", "1")
	cg.line(".digits:")
	cg.op("xor", "rdx", "rdx")
	cg.op("div", "r8")
	cg.op("add", "dl", "48")
	cg.op("dec", "rsi")
	cg.op("mov", "BYTE [rsi]", "dl")
	cg.op("test", "rax", "rax")
	cg.op("jnz", ".digits")
	cg.op("test", "r9", "r9")
	cg.op("jz", ".write")
	cg.op("dec", "rsi")
	cg.op("mov", "BYTE [rsi]", "45")
	cg.line(".write:")
	cg.op("mov", "rax", "1")
	cg.op("mov", "rdi", "1")
	cg.op("lea", "rdx", "[rsp+40]")
	cg.op("sub", "rdx", "rsi")
	cg.op("syscall")
	cg.op("add", "rsp", "40")
	cg.op("ret")
}
