package inspect

import (
	"bytes"
	"context"
	"debug/pe"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/StinkyLord/deploy-dll/internal/model"
)

// Native inspects PE files in-process with debug/pe. It needs no external
// tool and reports format tags using objdump's names so results from both
// backends compare equal.
type Native struct{}

// machineFormats maps COFF machine types to objdump's PE target names.
var machineFormats = map[uint16]string{
	pe.IMAGE_FILE_MACHINE_I386:  "pei-i386",
	pe.IMAGE_FILE_MACHINE_AMD64: "pei-x86-64",
	pe.IMAGE_FILE_MACHINE_ARM64: "pei-aarch64-little",
	pe.IMAGE_FILE_MACHINE_ARMNT: "pei-arm-little",
	pe.IMAGE_FILE_MACHINE_ARM:   "pei-arm-little",
}

// FormatForMachine returns the format tag for a COFF machine value.
func FormatForMachine(machine uint16) string {
	if f, ok := machineFormats[machine]; ok {
		return f
	}
	return fmt.Sprintf("pei-unknown-0x%04x", machine)
}

// Format implements Inspector.
func (n *Native) Format(_ context.Context, path string) (string, error) {
	f, err := open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return FormatForMachine(f.FileHeader.Machine), nil
}

// Dependencies implements Inspector.
func (n *Native) Dependencies(_ context.Context, path string) ([]string, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	imports, err := importedDLLs(f)
	if err != nil {
		return nil, &model.DeployError{
			Kind: model.ParseFailure,
			Path: path,
			Err:  errors.Wrap(err, "cannot read import directory"),
		}
	}

	deps := make([]string, 0, len(imports))
	for _, dll := range imports {
		deps = append(deps, strings.ToLower(dll))
	}
	return deps, nil
}

func open(path string) (*pe.File, error) {
	f, err := pe.Open(path)
	if err != nil {
		return nil, &model.DeployError{
			Kind: model.ParseFailure,
			Path: path,
			Err:  errors.Wrap(err, "not a PE file"),
		}
	}
	return f, nil
}

// importDescriptorSize is sizeof(IMAGE_IMPORT_DESCRIPTOR).
const importDescriptorSize = 20

// importedDLLs walks the import directory table and returns the Name field of
// every descriptor in table order. (*pe.File).ImportedLibraries is not
// implemented for PE, and ImportedSymbols drops DLLs imported by ordinal only.
func importedDLLs(f *pe.File) ([]string, error) {
	var dir pe.DataDirectory
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes <= pe.IMAGE_DIRECTORY_ENTRY_IMPORT {
			return nil, nil
		}
		dir = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_IMPORT]
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes <= pe.IMAGE_DIRECTORY_ENTRY_IMPORT {
			return nil, nil
		}
		dir = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_IMPORT]
	default:
		return nil, nil
	}
	if dir.VirtualAddress == 0 {
		return nil, nil
	}

	image := &rvaReader{file: f, cache: map[*pe.Section][]byte{}}
	var names []string
	for rva := dir.VirtualAddress; ; rva += importDescriptorSize {
		desc, err := image.at(rva)
		if err != nil {
			return nil, err
		}
		if len(desc) < importDescriptorSize {
			return nil, errors.New("truncated import descriptor")
		}
		nameRVA := binary.LittleEndian.Uint32(desc[12:16])
		if nameRVA == 0 {
			break
		}
		raw, err := image.at(nameRVA)
		if err != nil {
			return nil, err
		}
		if end := bytes.IndexByte(raw, 0); end >= 0 {
			raw = raw[:end]
		}
		names = append(names, string(raw))
	}
	return names, nil
}

// rvaReader resolves relative virtual addresses to section contents.
type rvaReader struct {
	file  *pe.File
	cache map[*pe.Section][]byte
}

func (r *rvaReader) at(rva uint32) ([]byte, error) {
	for _, s := range r.file.Sections {
		size := s.VirtualSize
		if s.Size > size {
			size = s.Size
		}
		if rva < s.VirtualAddress || rva >= s.VirtualAddress+size {
			continue
		}
		data, ok := r.cache[s]
		if !ok {
			var err error
			data, err = s.Data()
			if err != nil {
				return nil, errors.Wrapf(err, "cannot read section %s", s.Name)
			}
			r.cache[s] = data
		}
		off := rva - s.VirtualAddress
		if int(off) >= len(data) {
			return nil, errors.Errorf("rva 0x%x outside raw data of section %s", rva, s.Name)
		}
		return data[off:], nil
	}
	return nil, errors.Errorf("rva 0x%x not in any section", rva)
}
