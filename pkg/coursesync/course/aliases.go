package course

import (
	"fmt"

	"github.com/jamesainslie/coursesync/pkg/coursesync/category"
)

// Alias maps a short or colloquial course name to its canonical course.
// Category, when set, forces every file carrying the alias into that
// category regardless of keywords.
type Alias struct {
	Course   string
	Category category.Category
}

// BuiltinAliases is the alias table shipped with coursesync, keyed by the
// alias as people write it. Lookups go through an AliasTable, which
// normalizes the keys.
var BuiltinAliases = map[string]Alias{
	"马原":        {Course: "马克思主义基本原理"},
	"马克思主义基本原理": {Course: "马克思主义基本原理"},
	"大物":        {Course: "大学物理"},
	"大学物理":      {Course: "大学物理"},
	"大学物理实验":    {Course: "大学物理", Category: category.Lab},
	"大物实验":      {Course: "大学物理", Category: category.Lab},
	"电机实验":      {Course: "电机实验", Category: category.Lab},
	"电机":        {Course: "电机实验", Category: category.Lab},
	"航概":        {Course: "航空航天概论"},
	"航空航天概论":    {Course: "航空航天概论"},
	"航空航天专业导论":  {Course: "航空航天类专业导论"},
	"航空航天类专业导论": {Course: "航空航天类专业导论"},
	"概率论":       {Course: "概率论与数理统计"},
	"概率论与数理统计":  {Course: "概率论与数理统计"},
	"工图":        {Course: "工程图学"},
	"工程图学":      {Course: "工程图学"},
	"工数":        {Course: "工科数学分析"},
	"工科数学分析":    {Course: "工科数学分析"},
	"线代":        {Course: "线性代数"},
	"线性代数":      {Course: "线性代数"},
	"计组":        {Course: "计算机组成原理"},
	"计算机组成原理":   {Course: "计算机组成原理"},
	"计软基础":      {Course: "计算机软件技术基础"},
	"计算机软件基础":   {Course: "计算机软件技术基础"},
	"计算机软件技术基础": {Course: "计算机软件技术基础"},
	"数电":        {Course: "数字电路与逻辑设计"},
	"数字电路与逻辑设计": {Course: "数字电路与逻辑设计"},
	"机械原理课程设计":  {Course: "机械原理", Category: category.Design},
	"机械原理":      {Course: "机械原理"},
	"PLC":       {Course: "PLC"},
	"DSP":       {Course: "DSP实用技术"},
	"DSP实用技术":   {Course: "DSP实用技术"},
	"模电":        {Course: "现代电子技术基础（模拟部分）"},
	"现代电子技术基础（模拟部分）": {Course: "现代电子技术基础（模拟部分）"},
	"入党积极分子":         {Course: "入党积极分子"},
	"金工实习":           {Course: "金工实习"},
}

// AliasTable is an immutable normalized-alias lookup.
type AliasTable struct {
	entries map[string]Alias
}

// NewAliasTable builds a table from the built-in aliases with extra
// entries layered on top; an extra alias replaces a built-in one that
// normalizes to the same key.
func NewAliasTable(extra map[string]Alias) (*AliasTable, error) {
	entries := make(map[string]Alias, len(BuiltinAliases)+len(extra))
	for key, alias := range BuiltinAliases {
		entries[Normalize(key)] = alias
	}

	for key, alias := range extra {
		norm := Normalize(key)
		if norm == "" {
			return nil, fmt.Errorf("alias %q: empty after normalization", key)
		}
		if Normalize(alias.Course) == "" {
			return nil, fmt.Errorf("alias %q: course name is required", key)
		}
		if alias.Category != "" {
			if _, err := category.Parse(string(alias.Category)); err != nil {
				return nil, fmt.Errorf("alias %q: %w", key, err)
			}
		}
		entries[norm] = alias
	}

	return &AliasTable{entries: entries}, nil
}

// Lookup returns the alias registered for token, comparing normalized forms.
func (t *AliasTable) Lookup(token string) (Alias, bool) {
	alias, ok := t.entries[Normalize(token)]
	return alias, ok
}

// Len returns the number of distinct normalized aliases.
func (t *AliasTable) Len() int {
	return len(t.entries)
}
