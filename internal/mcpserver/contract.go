package mcpserver

// PostFormatContract describes the post fields for LLM consumers.
const PostFormatContract = `# Post Format

A post has five fields:

| Field     | Type    | Notes                                      |
|-----------|---------|--------------------------------------------|
| id        | integer | Assigned by the posts API. Never send it.  |
| title     | string  | Short headline.                            |
| date      | string  | Calendar date, ` + "`YYYY-MM-DD`" + `.                |
| author    | string  | Display name.                              |
| content   | string  | Plain text. http(s) URLs become links.     |

## Rules

1. All four editable fields are required on create and update; the posts
   API rejects empty values.
2. ` + "`update_post`" + ` replaces all four fields. Fetch the post with
   ` + "`get_post`" + ` first and send back the fields you do not change.
3. Sorting and searching work on title, content, author and date only.
4. Deleting a post cannot be undone.
`
