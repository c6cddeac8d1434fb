package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Type is the semantic column type rendered into DDL.
type Type string

const (
	TypeVarchar   Type = "varchar"
	TypeInt       Type = "int"
	TypeBigInt    Type = "bigint"
	TypeFloat     Type = "float"
	TypeNumeric   Type = "numeric"
	TypeTimestamp Type = "timestamp"
)

// Column declares one column of a table.
type Column struct {
	Name       string
	Type       Type
	Length     int // varchar(n) when > 0
	NotNull    bool
	Identity   bool // rendered as IDENTITY(0,1), implies bigint
	PrimaryKey bool
}

// ForeignKey declares a table-level foreign key constraint.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Table declares one warehouse table. Staging tables carry no constraints;
// they hold raw loaded rows verbatim.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
	Staging     bool
}

// DropSQL returns the idempotent drop statement for the table.
func (t Table) DropSQL() string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", t.Name)
}

// CreateSQL returns the create statement reflecting the declared constraints.
func (t Table) CreateSQL() string {
	var defs []string
	for _, c := range t.Columns {
		defs = append(defs, "    "+c.def())
	}
	for _, fk := range t.ForeignKeys {
		defs = append(defs, fmt.Sprintf("    FOREIGN KEY (%s) REFERENCES %s (%s)",
			fk.Column, fk.RefTable, fk.RefColumn))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", t.Name, strings.Join(defs, ",\n"))
}

func (c Column) def() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(" ")
	if c.Identity {
		b.WriteString("bigint IDENTITY(0,1)")
	} else if c.Type == TypeVarchar && c.Length > 0 {
		fmt.Fprintf(&b, "varchar(%d)", c.Length)
	} else {
		b.WriteString(string(c.Type))
	}
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	return b.String()
}

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidIdentifier reports whether s is a plain SQL identifier. Statement
// builders reject anything else rather than quoting it.
func ValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// StagingEvents lands raw app-usage events. Column names mirror the event
// JSON fields; the jsonpaths document maps them during COPY.
var StagingEvents = Table{
	Name:    "staging_events",
	Staging: true,
	Columns: []Column{
		{Name: "artist", Type: TypeVarchar},
		{Name: "auth", Type: TypeVarchar},
		{Name: "firstName", Type: TypeVarchar},
		{Name: "gender", Type: TypeVarchar},
		{Name: "itemInSession", Type: TypeInt},
		{Name: "lastName", Type: TypeVarchar},
		{Name: "length", Type: TypeFloat},
		{Name: "level", Type: TypeVarchar},
		{Name: "location", Type: TypeVarchar},
		{Name: "method", Type: TypeVarchar},
		{Name: "page", Type: TypeVarchar},
		{Name: "registration", Type: TypeFloat},
		{Name: "sessionId", Type: TypeInt},
		{Name: "song", Type: TypeVarchar},
		{Name: "status", Type: TypeInt},
		{Name: "ts", Type: TypeBigInt},
		{Name: "userAgent", Type: TypeVarchar},
		{Name: "userId", Type: TypeInt},
	},
}

// StagingSongs lands raw song-catalog records.
var StagingSongs = Table{
	Name:    "staging_songs",
	Staging: true,
	Columns: []Column{
		{Name: "num_songs", Type: TypeInt},
		{Name: "artist_id", Type: TypeVarchar},
		{Name: "artist_latitude", Type: TypeFloat},
		{Name: "artist_longitude", Type: TypeFloat},
		{Name: "artist_location", Type: TypeVarchar},
		{Name: "artist_name", Type: TypeVarchar},
		{Name: "song_id", Type: TypeVarchar},
		{Name: "title", Type: TypeVarchar},
		{Name: "duration", Type: TypeFloat},
		{Name: "year", Type: TypeInt},
	},
}

// Users is the user dimension, keyed by the app user id.
var Users = Table{
	Name: "users",
	Columns: []Column{
		{Name: "user_id", Type: TypeInt, PrimaryKey: true},
		{Name: "first_name", Type: TypeVarchar, NotNull: true},
		{Name: "last_name", Type: TypeVarchar, NotNull: true},
		{Name: "gender", Type: TypeVarchar, Length: 1},
		{Name: "level", Type: TypeVarchar, NotNull: true},
	},
}

// Artists is the artist dimension, keyed by the catalog artist id.
var Artists = Table{
	Name: "artists",
	Columns: []Column{
		{Name: "artist_id", Type: TypeVarchar, PrimaryKey: true},
		{Name: "name", Type: TypeVarchar, NotNull: true},
		{Name: "location", Type: TypeVarchar},
		{Name: "latitude", Type: TypeFloat},
		{Name: "longitude", Type: TypeFloat},
	},
}

// Songs is the song dimension, keyed by the catalog song id.
var Songs = Table{
	Name: "songs",
	Columns: []Column{
		{Name: "song_id", Type: TypeVarchar, PrimaryKey: true},
		{Name: "title", Type: TypeVarchar, NotNull: true},
		{Name: "artist_id", Type: TypeVarchar, NotNull: true},
		{Name: "year", Type: TypeInt},
		{Name: "duration", Type: TypeNumeric},
	},
	ForeignKeys: []ForeignKey{
		{Column: "artist_id", RefTable: "artists", RefColumn: "artist_id"},
	},
}

// Time is the time dimension, keyed by the event timestamp.
var Time = Table{
	Name: "time",
	Columns: []Column{
		{Name: "start_time", Type: TypeTimestamp, PrimaryKey: true},
		{Name: "hour", Type: TypeInt},
		{Name: "day", Type: TypeInt},
		{Name: "week", Type: TypeInt},
		{Name: "month", Type: TypeInt},
		{Name: "year", Type: TypeInt},
		{Name: "weekday", Type: TypeInt},
	},
}

// Songplays is the fact table. song_id and artist_id stay nullable so an
// event with no catalog match still produces a fact row.
var Songplays = Table{
	Name: "songplays",
	Columns: []Column{
		{Name: "songplay_id", Identity: true, PrimaryKey: true},
		{Name: "start_time", Type: TypeTimestamp, NotNull: true},
		{Name: "user_id", Type: TypeInt, NotNull: true},
		{Name: "level", Type: TypeVarchar, NotNull: true},
		{Name: "song_id", Type: TypeVarchar},
		{Name: "artist_id", Type: TypeVarchar},
		{Name: "session_id", Type: TypeInt},
		{Name: "location", Type: TypeVarchar},
		{Name: "user_agent", Type: TypeVarchar},
	},
	ForeignKeys: []ForeignKey{
		{Column: "start_time", RefTable: "time", RefColumn: "start_time"},
		{Column: "user_id", RefTable: "users", RefColumn: "user_id"},
		{Column: "song_id", RefTable: "songs", RefColumn: "song_id"},
		{Column: "artist_id", RefTable: "artists", RefColumn: "artist_id"},
	},
}

// All returns every table in dependency order: staging tables first, then
// dimensions, then the fact table that references them. Creation follows
// this order; drops run in reverse.
func All() []Table {
	return []Table{StagingEvents, StagingSongs, Users, Artists, Songs, Time, Songplays}
}

// Staging returns the landing tables targeted by bulk copy.
func Staging() []Table {
	return []Table{StagingEvents, StagingSongs}
}

// Dimensions returns the dimension tables in load order.
func Dimensions() []Table {
	return []Table{Users, Artists, Songs, Time}
}

// Fact returns the fact table.
func Fact() Table {
	return Songplays
}
