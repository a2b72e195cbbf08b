package hwpx

import "github.com/beevik/etree"

// Archive entries the injector patches.
const (
	ManifestEntry = "Contents/content.hpf"
	SectionEntry  = "Contents/section0.xml"
)

// AddManifestItem appends an item for asset to the package manifest's item list.
// The second result is false, and manifestXML is returned as is, when the document
// cannot be parsed or has no manifest element.
func AddManifestItem(manifestXML []byte, asset Asset) ([]byte, bool) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(manifestXML); err != nil {
		return manifestXML, false
	}
	manifest := doc.FindElement("//manifest")
	if manifest == nil {
		return manifestXML, false
	}

	item := manifest.CreateElement(qualify(manifest.Space, "item"))
	item.CreateAttr("id", asset.ID)
	item.CreateAttr("href", asset.Path())
	item.CreateAttr("media-type", asset.MediaType)
	item.CreateAttr("isEmbeded", "1")

	out, err := doc.WriteToBytes()
	if err != nil {
		return manifestXML, false
	}
	return out, true
}

func qualify(space, tag string) string {
	if space == "" {
		return tag
	}
	return space + ":" + tag
}
