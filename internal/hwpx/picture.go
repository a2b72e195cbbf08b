package hwpx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// OWPML namespaces used by a picture paragraph.
const (
	NamespaceParagraph = "http://www.hancom.co.kr/hwpml/2011/paragraph"
	NamespaceCore      = "http://www.hancom.co.kr/hwpml/2011/core"
)

// pictureOuterMargin separates the picture from surrounding text (1mm).
const pictureOuterMargin = 283

// Anchor selects where a picture paragraph is inserted into a section.
type Anchor string

const (
	// AnchorAfterFirstHeading skips the section's settings paragraph and its title.
	AnchorAfterFirstHeading Anchor = "after_first_heading"
	// AnchorBeforeSectionClose appends the picture after all existing content.
	AnchorBeforeSectionClose Anchor = "before_last_section_close"
)

// ParseAnchor maps a configuration or request value to an Anchor.
// The empty string selects AnchorAfterFirstHeading.
func ParseAnchor(s string) (Anchor, error) {
	switch Anchor(strings.ToLower(strings.TrimSpace(s))) {
	case "", AnchorAfterFirstHeading:
		return AnchorAfterFirstHeading, nil
	case AnchorBeforeSectionClose:
		return AnchorBeforeSectionClose, nil
	}
	return "", fmt.Errorf("unknown anchor %q (want %s or %s)", s, AnchorAfterFirstHeading, AnchorBeforeSectionClose)
}

// BuildPictureParagraph returns an hp:p element holding a single inline picture that
// references asset. Every size field carries the same geometry; instanceID is used
// for both the object id and its instance id.
func BuildPictureParagraph(asset Asset, g Geometry, instanceID int64) *etree.Element {
	w, h := itoa(g.Width), itoa(g.Height)
	iid := strconv.FormatInt(instanceID, 10)

	p := etree.NewElement("hp:p")
	setAttrs(p, "id", "0", "paraPrIDRef", "0", "styleIDRef", "0", "pageBreak", "0", "columnBreak", "0", "merged", "0")

	run := p.CreateElement("hp:run")
	run.CreateAttr("charPrIDRef", "0")

	pic := run.CreateElement("hp:pic")
	setAttrs(pic,
		"id", iid,
		"zOrder", "0",
		"numberingType", "PICTURE",
		"textWrap", "TOP_AND_BOTTOM",
		"textFlow", "BOTH_SIDES",
		"lock", "0",
		"dropcapstyle", "None",
		"href", "",
		"groupLevel", "0",
		"instid", iid,
		"reverse", "0",
	)

	setAttrs(pic.CreateElement("hp:offset"), "x", "0", "y", "0")
	setAttrs(pic.CreateElement("hp:orgSz"), "width", w, "height", h)
	setAttrs(pic.CreateElement("hp:curSz"), "width", w, "height", h)
	setAttrs(pic.CreateElement("hp:flip"), "horizontal", "0", "vertical", "0")
	setAttrs(pic.CreateElement("hp:rotationInfo"),
		"angle", "0", "centerX", itoa(g.Width/2), "centerY", itoa(g.Height/2), "rotateimage", "1")

	rendering := pic.CreateElement("hp:renderingInfo")
	for _, m := range []string{"hc:transMatrix", "hc:scaMatrix", "hc:rotMatrix"} {
		setAttrs(rendering.CreateElement(m), "e1", "1", "e2", "0", "e3", "0", "e4", "0", "e5", "1", "e6", "0")
	}

	setAttrs(pic.CreateElement("hc:img"),
		"binaryItemIDRef", asset.ID, "bright", "0", "contrast", "0", "effect", "REAL_PIC", "alpha", "0")

	rect := pic.CreateElement("hp:imgRect")
	setAttrs(rect.CreateElement("hc:pt0"), "x", "0", "y", "0")
	setAttrs(rect.CreateElement("hc:pt1"), "x", w, "y", "0")
	setAttrs(rect.CreateElement("hc:pt2"), "x", w, "y", h)
	setAttrs(rect.CreateElement("hc:pt3"), "x", "0", "y", h)

	setAttrs(pic.CreateElement("hp:imgClip"), "left", "0", "right", "0", "top", "0", "bottom", "0")
	setAttrs(pic.CreateElement("hp:inMargin"), "left", "0", "right", "0", "top", "0", "bottom", "0")
	setAttrs(pic.CreateElement("hp:imgDim"), "dimwidth", w, "dimheight", h)
	pic.CreateElement("hp:effects")
	setAttrs(pic.CreateElement("hp:sz"),
		"width", w, "widthRelTo", "ABSOLUTE", "height", h, "heightRelTo", "ABSOLUTE", "protect", "0")
	setAttrs(pic.CreateElement("hp:pos"),
		"treatAsChar", "1",
		"affectLSpacing", "0",
		"flowWithText", "1",
		"allowOverlap", "0",
		"holdAnchorAndSO", "0",
		"vertRelTo", "PARA",
		"horzRelTo", "COLUMN",
		"vertAlign", "TOP",
		"horzAlign", "CENTER",
		"vertOffset", "0",
		"horzOffset", "0",
	)
	margin := itoa(pictureOuterMargin)
	setAttrs(pic.CreateElement("hp:outMargin"), "left", "0", "right", "0", "top", margin, "bottom", margin)

	return p
}

// PictureParagraphXML serializes BuildPictureParagraph.
func PictureParagraphXML(asset Asset, g Geometry, instanceID int64) string {
	doc := etree.NewDocument()
	doc.SetRoot(BuildPictureParagraph(asset, g, instanceID))
	s, _ := doc.WriteToString()
	return s
}

// InsertParagraph splices fragment into the section document bodyXML at anchor and
// declares the paragraph and core namespaces on the root element when missing.
// The second result is false, and bodyXML is returned as is, when the document
// cannot be parsed or has no root element.
func InsertParagraph(bodyXML []byte, fragment *etree.Element, anchor Anchor) ([]byte, bool) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(bodyXML); err != nil {
		return bodyXML, false
	}
	root := doc.Root()
	if root == nil {
		return bodyXML, false
	}
	ensureNamespace(root, "hp", NamespaceParagraph)
	ensureNamespace(root, "hc", NamespaceCore)

	switch anchor {
	case AnchorBeforeSectionClose:
		sections := doc.FindElements("//sec")
		target := root
		if len(sections) > 0 {
			target = sections[len(sections)-1]
		}
		target.AddChild(fragment)
	default:
		insertAfterHeading(root, fragment)
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return bodyXML, false
	}
	return out, true
}

// insertAfterHeading places fragment after the second top-level paragraph, which
// follows the section-settings paragraph in generated documents. With one paragraph
// it goes after that one; with none it is appended to the section.
func insertAfterHeading(section, fragment *etree.Element) {
	var paragraphs []*etree.Element
	for _, child := range section.ChildElements() {
		if child.Tag == "p" {
			paragraphs = append(paragraphs, child)
			if len(paragraphs) == 2 {
				break
			}
		}
	}
	if len(paragraphs) == 0 {
		section.AddChild(fragment)
		return
	}
	anchor := paragraphs[len(paragraphs)-1]
	section.InsertChildAt(anchor.Index()+1, fragment)
}

func ensureNamespace(root *etree.Element, prefix, uri string) {
	if root.SelectAttr("xmlns:"+prefix) != nil {
		return
	}
	root.CreateAttr("xmlns:"+prefix, uri)
}

func setAttrs(e *etree.Element, kv ...string) {
	for i := 0; i+1 < len(kv); i += 2 {
		e.CreateAttr(kv[i], kv[i+1])
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
