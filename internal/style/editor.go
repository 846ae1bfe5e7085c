package style

import "github.com/gompdf/pagedit/internal/parser/css"

// editorCSS is the built-in look of placed blocks. Page size and padding are
// not styled here; they come from the page geometry options.
const editorCSS = `
.placed-block { margin: 0 0 12px 0; font-family: Helvetica; font-size: 16px; line-height: 1.5; color: #222222; }
.block-content { padding: 2px 4px; }

#titleHeader .block-content { font-size: 12px; text-align: center; color: #666666; }
#title .block-content { font-size: 28px; font-weight: bold; line-height: 1.25; }
#subtitle .block-content { font-size: 20px; font-weight: bold; line-height: 1.3; }
#paragraph .block-content { text-align: justify; }
#code .block-content { font-family: Courier; font-size: 14px; white-space: pre; padding: 12px; background-color: #f5f5f5; border: 1px solid #dddddd; }
#note .block-content { padding: 10px 14px; border-left: 4px solid #3b82f6; background-color: #eff6ff; }
#warning .block-content { padding: 10px 14px; border-left: 4px solid #f59e0b; background-color: #fffbeb; }

.figure-block { text-align: center; }
.image-placeholder { height: 120px; border: 1px dashed #999999; color: #777777; }
.figure-img-wrapper { max-width: 80%; }
.figure-caption { font-size: 13px; font-style: italic; margin: 6px 0 0 0; }

.delete-block-btn, .resize-handle, .page-number { display: none; }

p, div, blockquote { margin: 0; }
ul, ol { margin: 0 0 8px 0; padding-left: 24px; }
h1 { font-size: 2em; font-weight: bold; }
h2 { font-size: 1.5em; font-weight: bold; }
h3 { font-size: 1.17em; font-weight: bold; }
b, strong { font-weight: bold; }
i, em { font-style: italic; }
pre { white-space: pre; font-family: Courier; }
`

// EditorStylesheet parses the built-in block stylesheet.
func EditorStylesheet() *css.Stylesheet {
	sheet, _ := css.NewParser().ParseString(editorCSS)
	return sheet
}
