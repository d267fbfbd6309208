package forums

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tbl := []struct {
		in   string
		want string
	}{
		{"foro academico", "foro academico"},
		{"Foro Académico", "foro academico"},
		{"FORO ACADEMICO", "foro academico"},
		{"  Foro Académico  ", "foro academico"},
		{"  foro   academico", "foro   academico"},
		{"¿Preguntas? ¡Respuestas!", "preguntas? respuestas!"},
		{"Unidad 1 - Introducción.", "unidad 1 - introduccion."},
		{"Foro: (Académico) #2", "foro academico 2"},
		{"Ñandú_pingüino", "nandu_pinguino"},
		{"", ""},
		{"   ", ""},
		{"¿ foro", "foro"},
	}

	for _, tt := range tbl {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeMatchesAcademicForum(t *testing.T) {
	want := Normalize(AcademicForumTitle)
	for _, v := range []string{"Foro Académico", "FORO ACADEMICO", "foro académico", " Foro academico "} {
		assert.Equal(t, want, Normalize(v), v)
		assert.True(t, SameTitle(v, AcademicForumTitle), v)
	}
	assert.NotEqual(t, want, Normalize("  foro   academico"), "internal whitespace is not collapsed")
	assert.False(t, SameTitle("General Discussion", AcademicForumTitle))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Foro Académico", "  ¿Qué tal?  ", "İstanbul", "ǅemal", "Å ångström", "tab\tand\nnewline",
		"emoji 🎓 forum", "ﬁ ligature", "x́̂", "- . , ! ? -", "日本語のフォーラム", "",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}
