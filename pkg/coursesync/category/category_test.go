package category

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		tokens []string
		hint   Category
		want   Category
	}{
		{"hint wins over answer keyword", "实验答案", nil, Lab, Lab},
		{"hint wins over exam keyword", "2023期末", []string{"电机实验"}, Lab, Lab},
		{"answer before exam", "2023期末答案", nil, "", Answer},
		{"answer before lab", "实验报告详解", nil, "", Answer},
		{"lab", "变频器调速", nil, "", Lab},
		{"course design", "机械原理课设说明书", nil, "", Design},
		{"question bank", "高数练习", []string{"线代"}, "", Bank},
		{"homework", "第三章作业", nil, "", Homework},
		{"exam keyword", "2022年期中试卷", nil, "", Exam},
		{"ab paper case insensitive", "线代ab卷", nil, "", Exam},
		{"study material", "知识点总结", nil, "", Material},
		{"token can match", "第一讲", []string{"线代", "笔记"}, "", Material},
		{"rule order beats candidate order", "习题", []string{"答案"}, "", Answer},
		{"year fallback", "2021级线代", nil, "", Exam},
		{"year fallback skipped for study keyword", "2022年复习资料", nil, "", Material},
		{"year in token does not trigger fallback", "线代", []string{"2021"}, "", Material},
		{"default", "线性代数", nil, "", Material},
		{"empty", "", nil, "", Default},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.title, tt.tokens, tt.hint))
		})
	}
}

func TestRulesCoverEveryCategoryInOrder(t *testing.T) {
	require.Len(t, Rules, len(All))
	for i, rule := range Rules {
		assert.Equal(t, All[i], rule.Category)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"实验", Lab, false},
		{" 课设 ", Design, false},
		{"answer-key", Answer, false},
		{"Exam-Paper", Exam, false},
		{"homework", Homework, false},
		{"", "", true},
		{"视频", "", true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			assert.True(t, errors.Is(err, ErrUnknownCategory), "Parse(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "Parse(%q)", tt.in)
		assert.Equal(t, tt.want, got)
	}
}
