package mcpserver

// DocumentFormat describes how stored objects are resolved and assembled,
// for LLM consumers that add objects or read built documents.
const DocumentFormat = `# cbl Document Format

A project holds named documentation objects. Every add stores a new,
immutable version; nothing is ever edited or deleted.

## Objects

- **name**: stable identifier of the object (e.g. ` + "`" + `intro` + "`" + `, ` + "`" + `auth-tokens` + "`" + `).
- **version**: semantic version ` + "`" + `MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD]` + "`" + `.
- **section**: optional heading the object is filed under.
- **audience**: optional label such as ` + "`" + `user` + "`" + ` or ` + "`" + `dev` + "`" + `.

Content may begin with YAML front matter. Explicit tool arguments win over it,
and the block is removed before the content is stored:

` + "```" + `markdown
---
version: 1.2.0
section: API
audience: dev
---
# Authentication
` + "```" + `

## Resolution

For a target version T and an optional level L:

1. Only records whose audience equals L are considered (all records when L is empty).
2. Records with a version greater than T are ignored.
3. For each name the greatest remaining version wins. When two records share
   that version, the one added last wins.

## Assembly

Resolved objects are grouped by section. Configured sections come first in
configured order; objects without a section, or with an unconfigured one,
go into a final ` + "`" + `Other` + "`" + ` section. Empty sections are omitted. Within a
section objects are ordered by name.

` + "```" + `markdown
## Overview

<content of intro>

## API

<content of auth>

<content of errors>
` + "```" + `

Each object's content is copied verbatim, with a newline appended if missing.
`
