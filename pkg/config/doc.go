/*
Package config manages host profile parsing and validation for syncrc.

	              +-------------+
	              |    File     |
	              |  (Hosts)    |
	              +------+------+
	                     |
	   +---------+-------+-------+---------+
	   |         |               |         |
	+--+---+ +---+--+        +---+--+ +----+-+
	| YAML | | JSON |        | HCL  | | TOML |
	+------+ +------+        +------+ +------+

🎯 Purpose:
- Loads one or more host profiles from a config file
- Applies protocol aware defaults (port, remote path, sync mode)
- Validates profiles before any connection is attempted

🔄 Flow:
1. Load picks a Parser by file extension
2. The parser decodes the format into a File
3. File.Validate applies defaults and validates every host
4. Callers select a profile with File.Find

📝 Notes:
A Config is read-only once handed to a task. Optional credentials are kept
as empty strings when absent; nothing downstream substitutes defaults for them.
*/
package config
