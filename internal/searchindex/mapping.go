package searchindex

// CreationBody returns the index creation body: settings and mappings.
// Ported from original_source/eevee/indexing/indexes.py's
// get_index_create_body, adapted to OpenSearch's typeless mapping
// convention (the teacher's internal/opensearch/client.go CreateIndex
// already drops the DOC_TYPE wrapper around "properties").
func (ix *Index) CreationBody() map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"analysis": map[string]any{
				"normalizer": map[string]any{
					"lowercase_normalizer": map[string]any{
						"type":   "custom",
						"filter": []string{"lowercase"},
					},
				},
			},
		},
		"mappings": map[string]any{
			"dynamic_templates": []map[string]any{
				{
					"strings_as_text_and_keyword": map[string]any{
						"path_match": "data.*",
						"mapping": map[string]any{
							"type":     "text",
							"copy_to":  "meta.all",
							"fields": map[string]any{
								"keyword": map[string]any{
									"type":         "keyword",
									"normalizer":   "lowercase_normalizer",
									"ignore_above": 256,
								},
							},
						},
					},
				},
			},
			"properties": map[string]any{
				"meta": map[string]any{
					"properties": map[string]any{
						"versions": map[string]any{
							"type":   "date_range",
							"format": "epoch_millis",
						},
						"version": map[string]any{
							"type":   "date",
							"format": "epoch_millis",
						},
						"next_version": map[string]any{
							"type":   "date",
							"format": "epoch_millis",
						},
						"all": map[string]any{
							"type": "text",
						},
					},
				},
			},
		},
	}
}
