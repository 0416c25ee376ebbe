// Package config loads extforge configuration and resolves its data paths.
//
// Configuration is merged from, lowest priority first:
//
//  1. Global config (~/.config/extforge/extforge.json[c])
//  2. Project config (<dir>/extforge.json[c], <dir>/.extforge/extforge.json[c])
//  3. EXTFORGE_CONFIG file
//  4. EXTFORGE_CONFIG_CONTENT inline JSON
//  5. Environment variables
//
// Files may contain comments (JSONC) and {env:VAR} or {file:path}
// placeholders, which are substituted before parsing.
//
// Data, config and state directories follow XDG, or live under
// $EXTFORGE_HOME when it is set.
package config
