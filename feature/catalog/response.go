package catalog

// The discovery API nests everything under HAL "_embedded" objects.
// Pointers tell a missing key apart from an empty value.

type searchResponse struct {
	Embedded *struct {
		SearchResult *searchResult `json:"searchResult"`
	} `json:"_embedded"`
}

type searchResult struct {
	Page *struct {
		TotalPages *int `json:"totalPages"`
		Number     *int `json:"number"`
	} `json:"page"`
	Embedded *struct {
		Objects *[]objectNode `json:"objects"`
	} `json:"_embedded"`
}

type objectNode struct {
	Embedded *struct {
		IndexableObject *indexableObject `json:"indexableObject"`
	} `json:"_embedded"`
}

type indexableObject struct {
	Metadata map[string][]metadataValue `json:"metadata"`
	Embedded *struct {
		Bundles *struct {
			Embedded *struct {
				Bundles *[]bundleNode `json:"bundles"`
			} `json:"_embedded"`
		} `json:"bundles"`
	} `json:"_embedded"`
}

type metadataValue struct {
	Value string `json:"value"`
}

type bundleNode struct {
	Embedded struct {
		Bitstreams struct {
			Embedded struct {
				Bitstreams []bitstreamNode `json:"bitstreams"`
			} `json:"_embedded"`
		} `json:"bitstreams"`
	} `json:"_embedded"`
}

type bitstreamNode struct {
	BundleName string `json:"bundleName"`
	Links      struct {
		Content struct {
			Href string `json:"href"`
		} `json:"content"`
	} `json:"_links"`
}
