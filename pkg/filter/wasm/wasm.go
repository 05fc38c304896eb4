// Package wasm runs tile filters compiled to WebAssembly inside a WasmEdge VM.
//
// The module must export a memory named "memory", alloc(len) -> ptr,
// dealloc(ptr, len), and a filter function taking (inPtr, inLen, outParams)
// that returns the output length and writes the little-endian output pointer
// and length as two int32 values at outParams. Tiles cross the boundary as PNG.
package wasm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/second-state/WasmEdge-go/wasmedge"
)

const DefaultFunc = "grayscale"

var loadPlugins sync.Once

// Filter owns one VM. It is not safe for concurrent use.
type Filter struct {
	conf *wasmedge.Configure
	vm   *wasmedge.VM
	fn   string
}

// Load instantiates the module at path. fn is the exported filter function;
// empty means DefaultFunc.
func Load(path, fn string) (*Filter, error) {
	loadPlugins.Do(func() {
		wasmedge.SetLogErrorLevel()
		wasmedge.LoadPluginDefaultPaths()
	})
	if fn == "" {
		fn = DefaultFunc
	}

	conf := wasmedge.NewConfigure(wasmedge.WASI)
	vm := wasmedge.NewVMWithConfig(conf)
	f := &Filter{conf: conf, vm: vm, fn: fn}
	if err := vm.LoadWasmFile(path); err != nil {
		f.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := vm.Validate(); err != nil {
		f.Close()
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	if err := vm.Instantiate(); err != nil {
		f.Close()
		return nil, fmt.Errorf("instantiate %s: %w", path, err)
	}
	return f, nil
}

func (f *Filter) Close() {
	if f.vm != nil {
		f.vm.Release()
		f.vm = nil
	}
	if f.conf != nil {
		f.conf.Release()
		f.conf = nil
	}
}

func (f *Filter) alloc(n int32) (int32, error) {
	res, err := f.vm.Execute("alloc", n)
	if err != nil {
		return 0, err
	}
	return res[0].(int32), nil
}

func (f *Filter) Apply(tile image.Image) (image.Image, error) {
	var inBuf bytes.Buffer
	if err := png.Encode(&inBuf, tile); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	inBytes := inBuf.Bytes()
	inLen := int32(len(inBytes))

	inPtr, err := f.alloc(inLen)
	if err != nil {
		return nil, fmt.Errorf("alloc input: %w", err)
	}
	defer f.vm.Execute("dealloc", inPtr, inLen)

	mem := f.vm.GetActiveModule().FindMemory("memory")
	if mem == nil {
		return nil, fmt.Errorf("module exports no memory")
	}
	inData, err := mem.GetData(uint(inPtr), uint(inLen))
	if err != nil {
		return nil, fmt.Errorf("mem input: %w", err)
	}
	copy(inData, inBytes)

	paramsPtr, err := f.alloc(8)
	if err != nil {
		return nil, fmt.Errorf("alloc params: %w", err)
	}
	defer f.vm.Execute("dealloc", paramsPtr, int32(8))

	lenRes, err := f.vm.Execute(f.fn, inPtr, inLen, paramsPtr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.fn, err)
	}
	if lenRes[0].(int32) == 0 {
		return nil, fmt.Errorf("%s: zero length output", f.fn)
	}

	params, err := mem.GetData(uint(paramsPtr), 8)
	if err != nil {
		return nil, fmt.Errorf("mem params: %w", err)
	}
	outPtr := int32(binary.LittleEndian.Uint32(params[0:4]))
	outLen := int32(binary.LittleEndian.Uint32(params[4:8]))
	defer f.vm.Execute("dealloc", outPtr, outLen)

	outData, err := mem.GetData(uint(outPtr), uint(outLen))
	if err != nil {
		return nil, fmt.Errorf("mem output: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(outData))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}
