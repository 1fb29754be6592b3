package mcpserver

// VaultContract describes how the vault treats files, ids and tags for LLM
// clients that create or edit documents.
const VaultContract = `# opnvault Contract

The vault is a flat folder of documents. Every file has:

- **id**: assigned by the vault on create or upload. It never changes, not
  even on rename. Use it for every tool call.
- **name**: the display name. Any text except path separators (` + "`/`" + `,
  ` + "`\\`" + `), NUL, ` + "`.`" + ` and ` + "`..`" + `. Leading and trailing spaces are trimmed.
- **size** and **last modified**: read from the file itself.
- **tags**: free-form labels. Order is kept and duplicates are allowed.
  Blank tags are dropped and the rest are trimmed.

## Rules

1. Create files with ` + "`create_file`" + ` or ` + "`upload_file`" + `. Two files may share a name;
   they still get different ids.
2. ` + "`write_file`" + ` replaces the whole content and keeps the tags.
3. ` + "`rename_file`" + ` keeps the id and the tags.
4. ` + "`delete_file`" + ` removes the tags first, then the content. A warning means the
   file is gone but its tags could not be removed; they are cleaned up on the
   next start.
5. ` + "`set_tags`" + ` takes a comma-separated list and replaces all tags. An empty
   list clears them.
6. ` + "`list_files`" + ` accepts a query that matches names and tags without regard to
   case.
`
