// Package petest writes minimal PE images for tests that need a real binary
// on disk.
package petest

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"os"
)

const importDescriptorSize = 20

// Write writes a minimal PE32+ image to path with a single .idata section
// whose import directory names the given DLLs.
func Write(path string, machine uint16, dlls []string) error {
	const (
		fileAlign   = 0x200
		sectionVA   = 0x1000
		sectionSize = 0x200
		namesOffset = 0x100
	)

	// Section contents: descriptors, a terminating zero descriptor, then names.
	section := make([]byte, sectionSize)
	nameOff := namesOffset
	for i, dll := range dlls {
		desc := section[i*importDescriptorSize:]
		binary.LittleEndian.PutUint32(desc[12:16], uint32(sectionVA+nameOff))
		copy(section[nameOff:], dll)
		nameOff += len(dll) + 1
	}

	var buf bytes.Buffer
	dos := make([]byte, 0x40)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[0x3c:], 0x40)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")

	var oh pe.OptionalHeader64
	oh.Magic = 0x20b
	oh.SectionAlignment = 0x1000
	oh.FileAlignment = fileAlign
	oh.SizeOfImage = 0x2000
	oh.SizeOfHeaders = fileAlign
	oh.NumberOfRvaAndSizes = 16
	oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_IMPORT] = pe.DataDirectory{
		VirtualAddress: sectionVA,
		Size:           uint32((len(dlls) + 1) * importDescriptorSize),
	}

	fh := pe.FileHeader{
		Machine:              machine,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(binary.Size(oh)),
		Characteristics:      0x22,
	}
	if err := binary.Write(&buf, binary.LittleEndian, fh); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.LittleEndian, oh); err != nil {
		return err
	}

	sh := pe.SectionHeader32{
		VirtualSize:      sectionSize,
		VirtualAddress:   sectionVA,
		SizeOfRawData:    sectionSize,
		PointerToRawData: fileAlign,
		Characteristics:  0xc0000040,
	}
	copy(sh.Name[:], ".idata")
	if err := binary.Write(&buf, binary.LittleEndian, sh); err != nil {
		return err
	}

	for buf.Len() < fileAlign {
		buf.WriteByte(0)
	}
	buf.Write(section)

	return os.WriteFile(path, buf.Bytes(), 0o644)
}
