// Package reader extracts categories and content pages from a hierarchical
// Notion workspace: a root page containing category child-pages, each of
// which contains leaf content pages.
package reader

import (
	"github.com/ntnkb/ntnkb/internal/notion"
)

// BlockType identifies the normalized block variant.
type BlockType string

// Normalized block types. Anything the source returns outside this
// vocabulary maps to BlockUnknown instead of failing.
const (
	BlockParagraph        BlockType = "paragraph"
	BlockHeading1         BlockType = "heading_1"
	BlockHeading2         BlockType = "heading_2"
	BlockHeading3         BlockType = "heading_3"
	BlockBulletedListItem BlockType = "bulleted_list_item"
	BlockNumberedListItem BlockType = "numbered_list_item"
	BlockToDo             BlockType = "to_do"
	BlockCode             BlockType = "code"
	BlockImage            BlockType = "image"
	BlockChildPage        BlockType = "child_page"
	BlockUnknown          BlockType = "unsupported"
)

// Block is the normalized representation of a source block. Exactly one of
// the variant fields is populated, selected by Type; text-bearing types use
// the plain Text field. Blocks are transient: rebuilt on every fetch, never
// persisted.
type Block struct {
	ID          string
	Type        BlockType
	HasChildren bool

	// Text holds the flattened rich text for paragraph, heading and list
	// item blocks.
	Text string

	ToDo      *ToDoContent
	Code      *CodeContent
	Image     *ImageContent
	ChildPage *ChildPageContent
	Unknown   *UnknownContent

	// Children holds nested blocks once resolved by FetchNestedBlocks.
	Children []Block
}

// ToDoContent is the payload of a to-do block.
type ToDoContent struct {
	Text    string
	Checked bool
}

// CodeContent is the payload of a code block.
type CodeContent struct {
	Text     string
	Language string
}

// ImageKind distinguishes externally hosted from Notion-hosted images.
type ImageKind string

// Image hosting kinds.
const (
	ImageExternal ImageKind = "external"
	ImageHosted   ImageKind = "file"
)

// ImageContent is the payload of an image block.
type ImageContent struct {
	Kind    ImageKind
	URL     string
	Caption string
}

// ChildPageContent is the payload of a child-page block.
type ChildPageContent struct {
	Title string
}

// UnknownContent carries the original type tag of an unrecognized block.
type UnknownContent struct {
	OriginalType string
}

// normalizeBlock maps the source's tagged-union block shape into the
// normalized Block representation. The default arm is the explicit
// catch-all: unrecognized tags never fail the transform.
func normalizeBlock(b *notion.Block) Block {
	block := Block{
		ID:          b.ID,
		HasChildren: b.HasChildren,
	}

	switch b.Type {
	case "paragraph":
		block.Type = BlockParagraph
		if b.Paragraph != nil {
			block.Text = notion.ParseRichText(b.Paragraph.RichText)
		}
	case "heading_1":
		block.Type = BlockHeading1
		if b.Heading1 != nil {
			block.Text = notion.ParseRichText(b.Heading1.RichText)
		}
	case "heading_2":
		block.Type = BlockHeading2
		if b.Heading2 != nil {
			block.Text = notion.ParseRichText(b.Heading2.RichText)
		}
	case "heading_3":
		block.Type = BlockHeading3
		if b.Heading3 != nil {
			block.Text = notion.ParseRichText(b.Heading3.RichText)
		}
	case "bulleted_list_item":
		block.Type = BlockBulletedListItem
		if b.BulletedListItem != nil {
			block.Text = notion.ParseRichText(b.BulletedListItem.RichText)
		}
	case "numbered_list_item":
		block.Type = BlockNumberedListItem
		if b.NumberedListItem != nil {
			block.Text = notion.ParseRichText(b.NumberedListItem.RichText)
		}
	case "to_do":
		block.Type = BlockToDo
		content := &ToDoContent{}
		if b.ToDo != nil {
			content.Text = notion.ParseRichText(b.ToDo.RichText)
			content.Checked = b.ToDo.Checked
		}
		block.ToDo = content
	case "code":
		block.Type = BlockCode
		content := &CodeContent{}
		if b.Code != nil {
			content.Text = notion.ParseRichText(b.Code.RichText)
			content.Language = b.Code.Language
		}
		block.Code = content
	case "image":
		block.Type = BlockImage
		content := &ImageContent{Kind: ImageHosted}
		if b.Image != nil {
			content.URL = b.Image.URL()
			content.Caption = notion.ParseRichText(b.Image.Caption)
			if b.Image.External != nil {
				content.Kind = ImageExternal
			}
		}
		block.Image = content
	case "child_page":
		block.Type = BlockChildPage
		content := &ChildPageContent{}
		if b.ChildPage != nil {
			content.Title = b.ChildPage.Title
		}
		block.ChildPage = content
	default:
		block.Type = BlockUnknown
		block.Unknown = &UnknownContent{OriginalType: b.Type}
	}

	return block
}
