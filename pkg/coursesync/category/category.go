// Package category assigns a dropped file to one of the library's fixed
// subfolders from keywords in its title and metadata tokens.
package category

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Category is the name of a category subfolder inside a course directory.
type Category string

// The closed set of categories.
const (
	Answer   Category = "答案"
	Lab      Category = "实验"
	Design   Category = "课设"
	Bank     Category = "题库"
	Homework Category = "作业"
	Exam     Category = "试卷"
	Material Category = "资料"
)

// Default is used when nothing else matches.
const Default = Material

// All lists every category in rule priority order.
var All = []Category{Answer, Lab, Design, Bank, Homework, Exam, Material}

// ErrUnknownCategory is returned by Parse for names outside the closed set.
var ErrUnknownCategory = errors.New("unknown category")

var englishNames = map[string]Category{
	"answer":         Answer,
	"answer-key":     Answer,
	"lab":            Lab,
	"experiment":     Lab,
	"course-design":  Design,
	"design":         Design,
	"question-bank":  Bank,
	"bank":           Bank,
	"practice":       Bank,
	"homework":       Homework,
	"exam":           Exam,
	"exam-paper":     Exam,
	"material":       Material,
	"study-material": Material,
}

// Parse validates s as a category. It accepts the folder names themselves
// and their English labels (answer-key, lab, course-design, ...).
func Parse(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range All {
		if string(c) == s {
			return c, nil
		}
	}
	if c, ok := englishNames[strings.ToLower(s)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Rule maps a pattern to the category it indicates.
type Rule struct {
	Pattern  *regexp.Regexp
	Category Category
}

// Rules are evaluated in order and the first match wins, so more specific
// categories come first: an answer sheet for a lab stays an answer sheet.
var Rules = []Rule{
	{regexp.MustCompile(`(?i)答案|解答|解析|详解`), Answer},
	{regexp.MustCompile(`(?i)实验|实验报告|平台安装测试|变频器|实验指导`), Lab},
	{regexp.MustCompile(`(?i)课程设计|课设`), Design},
	{regexp.MustCompile(`(?i)题库|练习|练习册|练习题|选择题|辨析题`), Bank},
	{regexp.MustCompile(`(?i)作业`), Homework},
	{regexp.MustCompile(`(?i)试卷|试题|期中|期末|考试|考题|A卷|B卷|AB卷`), Exam},
	{regexp.MustCompile(`(?i)教材|知识点|重点|笔记|提纲|指南|复习|总结|资料|精编|课程导论`), Material},
}

var (
	yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

	// studyKeywords keep a dated title out of the exam fallback.
	studyKeywords = regexp.MustCompile(`答案|解答|解析|详解|知识点|笔记|提纲|指南|资料|复习|题库|练习|作业`)
)

// Classify returns the category for a file. A non-empty hint (an alias
// override) wins outright. Otherwise the rules are tried against the
// title and each token; failing that a title mentioning a year without
// study-material keywords is taken to be an exam paper. It never fails.
func Classify(title string, tokens []string, hint Category) Category {
	if hint != "" {
		return hint
	}

	candidates := make([]string, 0, len(tokens)+1)
	candidates = append(candidates, title)
	candidates = append(candidates, tokens...)

	for _, rule := range Rules {
		for _, text := range candidates {
			if rule.Pattern.MatchString(text) {
				return rule.Category
			}
		}
	}

	if yearPattern.MatchString(title) && !studyKeywords.MatchString(title) {
		return Exam
	}

	return Default
}
