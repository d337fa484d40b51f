package xcbench

import (
	"io/ioutil"
	"testing"
)

func load(t testing.TB) []byte {
	data, err := ioutil.ReadFile("testdata/sample.txt")
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestAllCodecsShrinkTheSample(t *testing.T) {
	data := load(t)
	for _, r := range All(data) {
		if r.OutputBytes <= 0 {
			t.Errorf("%s: OutputBytes = %d, want > 0", r.Name, r.OutputBytes)
		}
		if r.OutputBytes >= r.InputBytes {
			t.Errorf("%s: did not shrink repetitive input: %d -> %d", r.Name, r.InputBytes, r.OutputBytes)
		}
	}
}

func BenchmarkXCodec(b *testing.B) {
	data := load(b)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	r := XCodec(data)
	b.ReportMetric(r.Ratio(), "ratio")
	for i := 0; i < b.N; i++ {
		XCodec(data)
	}
}

func BenchmarkSnappy(b *testing.B) {
	data := load(b)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	r := Snappy(data)
	b.ReportMetric(r.Ratio(), "ratio")
	for i := 0; i < b.N; i++ {
		Snappy(data)
	}
}

func BenchmarkZstd(b *testing.B) {
	data := load(b)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	r := Zstd(data)
	b.ReportMetric(r.Ratio(), "ratio")
	for i := 0; i < b.N; i++ {
		Zstd(data)
	}
}

func BenchmarkLZ4(b *testing.B) {
	data := load(b)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	r := LZ4(data)
	b.ReportMetric(r.Ratio(), "ratio")
	for i := 0; i < b.N; i++ {
		LZ4(data)
	}
}

func BenchmarkBrotli(b *testing.B) {
	data := load(b)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	r := Brotli(data, 5)
	b.ReportMetric(r.Ratio(), "ratio")
	for i := 0; i < b.N; i++ {
		Brotli(data, 5)
	}
}
