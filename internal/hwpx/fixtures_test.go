package hwpx

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

const testManifest = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` +
	`<opf:package xmlns:opf="http://www.idpf.org/2007/opf/" version="" unique-identifier="" id="">` +
	`<opf:metadata><opf:title>report</opf:title></opf:metadata>` +
	`<opf:manifest>` +
	`<opf:item id="header" href="Contents/header.xml" media-type="application/xml"/>` +
	`<opf:item id="section0" href="Contents/section0.xml" media-type="application/xml"/>` +
	`</opf:manifest>` +
	`<opf:spine><opf:itemref idref="header" linear="yes"/><opf:itemref idref="section0" linear="yes"/></opf:spine>` +
	`</opf:package>`

const testSection = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` +
	`<hs:sec xmlns:hs="http://www.hancom.co.kr/hwpml/2011/section" xmlns:hp="http://www.hancom.co.kr/hwpml/2011/paragraph">` +
	`<hp:p id="1" paraPrIDRef="0" styleIDRef="0"><hp:run charPrIDRef="0"><hp:secPr/></hp:run></hp:p>` +
	`<hp:p id="2" paraPrIDRef="1" styleIDRef="1"><hp:run charPrIDRef="1"><hp:t>진단 결과 보고서</hp:t></hp:run></hp:p>` +
	`<hp:p id="3" paraPrIDRef="0" styleIDRef="0"><hp:run charPrIDRef="0"><hp:t>본문</hp:t></hp:run></hp:p>` +
	`</hs:sec>`

// buildArchive writes entries into an in-memory ZIP. A "mimetype" entry is stored
// uncompressed the way HWPX requires.
func buildArchive(t *testing.T, entries ...Entry) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, e := range entries {
		method := zip.Deflate
		if e.Name == "mimetype" {
			method = zip.Store
		}
		fw, err := w.CreateHeader(&zip.FileHeader{Name: e.Name, Method: method})
		require.NoError(t, err)
		_, err = fw.Write(e.Data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func testHWPX(t *testing.T) []byte {
	t.Helper()
	return buildArchive(t,
		Entry{Name: ManifestEntry, Data: []byte(testManifest)},
		Entry{Name: SectionEntry, Data: []byte(testSection)},
		Entry{Name: "mimetype", Data: []byte("application/hwp+zip")},
	)
}

func entryMap(t *testing.T, archive []byte) map[string][]byte {
	t.Helper()
	entries, err := Entries(archive)
	require.NoError(t, err)
	m := make(map[string][]byte, len(entries))
	for _, e := range entries {
		m[e.Name] = e.Data
	}
	return m
}

func entryNames(t *testing.T, archive []byte) []string {
	t.Helper()
	entries, err := Entries(archive)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
