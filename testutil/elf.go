package testutil

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
)

// WriteELF writes a minimal RISC-V ELF executable to path: a bare 64-bit
// header with no program or section tables, which is enough to pass
// workload validation.
func WriteELF(path string) error {
	header := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_RISCV),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     0x10000,
		Ehsize:    64,
		Phentsize: 56,
		Shentsize: 64,
	}
	copy(header.Ident[:], elf.ELFMAG)
	header.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	header.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	header.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, &header); err != nil {
		return errors.Wrap(err, "encoding ELF header")
	}
	return errors.Wrapf(os.WriteFile(path, buf.Bytes(), 0755), "writing ELF file '%s'", path)
}
