package bookmarks

// Entry is the property block of one bookmark.
type Entry struct {
	Icon        string `yaml:"icon"`
	Abbr        string `yaml:"abbr"`
	Href        string `yaml:"href"`
	Description string `yaml:"description"`
}

// Category maps a category name to its bookmarks. Each bookmark name maps
// to a list holding a single Entry:
//
//	- Developer:
//	    - Github:
//	        - abbr: GH
//	          href: https://github.com/
type Category map[string][]map[string][]Entry

// File is the root of bookmarks.yaml.
type File []Category
