package deobfuscator

import "errors"

// ErrUnpacking is returned for malformed p.a.c.k.e.r. input: no extractable
// argument list, a symtab/count mismatch, or an unsupported radix. Input
// without the packer signature is not an error (Deobfuscate reports ok=false).
var ErrUnpacking = errors.New("deobfuscator: unpacking error")
