package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
)

// minimalPDF builds a text-free PDF with the given number of pages and a valid xref table.
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	offsets := []int{}
	buf.WriteString("%PDF-1.4\n")

	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", i+3)
	}
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		writeObj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestNormalizeMediaType(t *testing.T) {
	cases := map[string]string{
		"application/pdf":                 "application/pdf",
		" Application/PDF ":               "application/pdf",
		"application/pdf; charset=binary": "application/pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"": "",
	}
	for in, want := range cases {
		if got := NormalizeMediaType(in); got != want {
			t.Fatalf("NormalizeMediaType(%q) = %q, want %q", in, got, want)
		}
	}
	if IsPDF("application/msword") {
		t.Fatal("msword must not be accepted as pdf")
	}
}

func TestPageCount(t *testing.T) {
	got, err := PageCount(minimalPDF(3))
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if got != 3 {
		t.Fatalf("expected 3 pages, got %d", got)
	}
}

func TestPageCountRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("PK\x03\x04 not a pdf"), []byte("%PDF-1.4\ntruncated")} {
		if _, err := PageCount(data); !errors.Is(err, ErrNotPDF) {
			t.Fatalf("expected ErrNotPDF for %q, got %v", data, err)
		}
	}
}

func TestPlainTextHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := PlainText(ctx, minimalPDF(1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
