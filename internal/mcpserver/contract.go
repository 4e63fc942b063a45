package mcpserver

// DatasetFormatContract describes the dataset file format the importer reads.
// LLM consumers use it to interpret entity, relationship and chunk fields.
const DatasetFormatContract = `# GraphLens Dataset Format

Every file under the dataset directory with a ` + "`" + `.yaml` + "`" + `, ` + "`" + `.yml` + "`" + ` or ` + "`" + `.json` + "`" + ` extension
is one dataset. Dotfiles are ignored. A dataset is named by its slash-separated
path relative to the dataset directory (e.g. ` + "`" + `people/team.yaml` + "`" + `).

## Structure

` + "```" + `yaml
entities:
  - entity_name: Alice            # REQUIRED (aliases: id, name)
    entity_type: person
    description: Software engineer
    source_id: c1<SEP>c2          # chunk ids, <SEP>-joined string or list
    file_path: notes/alice.txt    # <SEP>-joined string or list
    created_at: 1700000000        # unix seconds or a YAML timestamp
relationships:
  - src_id: Alice                 # REQUIRED (alias: source)
    tgt_id: Acme Corp             # REQUIRED (alias: target)
    description: Alice works at Acme Corp
    keywords: employment,works_at
    weight: 0.9                   # 0..1, missing counts as 1.0 when filtering and averaging
    timestamp: 1700000000
chunks:
  - id: c1                        # REQUIRED (alias: chunk_id)
    content: Alice joined the team.
    file_path: notes/alice.txt
    full_doc_id: doc-1            # alias: doc_id
    chunk_order_index: 0
    tokens: 5
    timestamp: 1700000000
` + "```" + `

## Rules

1. **Relationships are undirected for lookup.** An edge is found from either
   endpoint; its stored source and target decide whether it is reported as
   incoming or outgoing for the queried entity.
2. **Unknown fields are kept** as attributes and can be used as a
   relationship ` + "`" + `sort_by` + "`" + ` field.
3. **Re-importing** a changed file replaces everything that file contributed.
   Removing a file removes its records.
4. **Entity names are case-sensitive** for lookup; type and keyword filters
   ignore case.
`
