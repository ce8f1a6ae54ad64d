package rt0_test

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/embeddedrt/rt0"
)

const guard = 8

// alignedBytes returns a byte slice of length n whose backing array is
// 8 byte aligned, so that test offsets translate into known alignments.
func alignedBytes(n int) []byte {
	words := make([]uint64, (n+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), n)
}

// guarded returns a buffer of size n preceded and followed by guard bytes
// holding 0xa5, plus the whole backing slice for checking them afterwards.
func guarded(n int) (buf, backing []byte) {
	backing = alignedBytes(n + 2*guard)
	for i := range backing {
		backing[i] = 0xa5
	}
	return backing[guard : guard+n], backing
}

func ptr(p []byte, i int) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(p)), i)
}

// All supported word widths, one instantiation each.
var words = []struct {
	name string
	size int
	zero func(start, end unsafe.Pointer)
	copy func(start, end, load unsafe.Pointer)
}{
	{"uint8", 1, rt0.ZeroBSS[uint8], rt0.InitData[uint8]},
	{"uint16", 2, rt0.ZeroBSS[uint16], rt0.InitData[uint16]},
	{"uint32", 4, rt0.ZeroBSS[uint32], rt0.InitData[uint32]},
	{"uint64", 8, rt0.ZeroBSS[uint64], rt0.InitData[uint64]},
	{"uintptr", int(unsafe.Sizeof(uintptr(0))), rt0.ZeroBSS[uintptr], rt0.InitData[uintptr]},
}

func TestZeroBSS(t *testing.T) {
	for _, w := range words {
		for align := 0; align < 8; align++ {
			for length := 0; length < 4*w.size+4; length++ {
				buf, backing := guarded(align + length)

				w.zero(ptr(buf, align), ptr(buf, align+length))

				body := backing[guard+align : guard+align+length]
				if !bytes.Equal(body, make([]byte, length)) {
					t.Fatalf("%s align=%d length=%d: not zeroed: % x",
						w.name, align, length, body)
				}
				head := backing[:guard+align]
				tail := backing[guard+align+length:]
				for _, b := range append(append([]byte(nil), head...), tail...) {
					if b != 0xa5 {
						t.Fatalf("%s align=%d length=%d: guard modified",
							w.name, align, length)
					}
				}
			}
		}
	}
}

func TestZeroBSSEmpty(t *testing.T) {
	buf, backing := guarded(0)
	rt0.ZeroBSS[uint32](ptr(buf, 0), ptr(buf, 0))
	for _, b := range backing {
		if b != 0xa5 {
			t.Fatal("empty range modified memory")
		}
	}
}

func TestZeroBSSIdempotent(t *testing.T) {
	buf, backing := guarded(37)
	rt0.ZeroBSS[uint64](ptr(buf, 0), ptr(buf, len(buf)))
	once := append([]byte(nil), backing...)
	rt0.ZeroBSS[uint64](ptr(buf, 0), ptr(buf, len(buf)))
	if !bytes.Equal(backing, once) {
		t.Fatal("second zeroing changed the result")
	}
}

func TestInitData(t *testing.T) {
	for _, w := range words {
		for align := 0; align < 8; align++ {
			for length := 0; length < 4*w.size+4; length++ {
				srcBacking := alignedBytes(align + length)
				src := srcBacking[align:]
				for i := range src {
					src[i] = byte(7*i + 1)
				}
				srcOrig := append([]byte(nil), src...)

				buf, backing := guarded(align + length)

				w.copy(ptr(buf, align), ptr(buf, align+length), ptr(src, 0))

				body := backing[guard+align : guard+align+length]
				if !bytes.Equal(body, srcOrig) {
					t.Logf("got      % x", body)
					t.Logf("expected % x", srcOrig)
					t.Fatalf("%s align=%d length=%d: mismatch", w.name, align, length)
				}
				if !bytes.Equal(src, srcOrig) {
					t.Fatalf("%s align=%d length=%d: source modified",
						w.name, align, length)
				}
				head := backing[:guard+align]
				tail := backing[guard+align+length:]
				for _, b := range append(append([]byte(nil), head...), tail...) {
					if b != 0xa5 {
						t.Fatalf("%s align=%d length=%d: guard modified",
							w.name, align, length)
					}
				}
			}
		}
	}
}

func TestInitDataEmpty(t *testing.T) {
	buf, backing := guarded(0)
	rt0.InitData[uint64](ptr(buf, 0), ptr(buf, 0), nil)
	for _, b := range backing {
		if b != 0xa5 {
			t.Fatal("empty range modified memory")
		}
	}
}

func TestInit(t *testing.T) {
	bssBuf, bssBacking := guarded(24)
	dataBuf, dataBacking := guarded(17)
	load := alignedBytes(17)
	for i := range load {
		load[i] = byte(i + 0x30)
	}

	bss := rt0.Range{Start: ptr(bssBuf, 0), End: ptr(bssBuf, len(bssBuf))}
	data := rt0.Range{Start: ptr(dataBuf, 0), End: ptr(dataBuf, len(dataBuf))}
	if bss.Len() != 24 || data.Len() != 17 {
		t.Fatal("bad range length")
	}

	rt0.Init[uint32](bss, data, ptr(load, 0))

	if !bytes.Equal(bssBuf, make([]byte, len(bssBuf))) {
		t.Error("bss not zeroed")
	}
	if !bytes.Equal(dataBuf, load) {
		t.Error("data not initialized from load image")
	}
	for _, backing := range [][]byte{bssBacking, dataBacking} {
		if !bytes.Equal(backing[:guard], bytes.Repeat([]byte{0xa5}, guard)) ||
			!bytes.Equal(backing[len(backing)-guard:], bytes.Repeat([]byte{0xa5}, guard)) {
			t.Error("guard modified")
		}
	}
}

func BenchmarkZeroBSS(b *testing.B) {
	buf := alignedBytes(64 * 1024)
	start, end := ptr(buf, 0), ptr(buf, len(buf))
	b.SetBytes(int64(len(buf)))
	for i := 0; i < b.N; i++ {
		rt0.ZeroBSS[uint64](start, end)
	}
}

func BenchmarkInitData(b *testing.B) {
	src := alignedBytes(64 * 1024)
	dst := alignedBytes(64 * 1024)
	start, end := ptr(dst, 0), ptr(dst, len(dst))
	b.SetBytes(int64(len(dst)))
	for i := 0; i < b.N; i++ {
		rt0.InitData[uint64](start, end, ptr(src, 0))
	}
}
