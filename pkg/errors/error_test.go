package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewCarriesCode() {
	err := New(ErrCodeMissingColumn, "missing column")

	suite.Equal(ErrCodeMissingColumn, GetCode(err))
	suite.Contains(err.Error(), "missing column")
	suite.Contains(err.Error(), "201")
}

func (suite *ErrorTestSuite) TestNewfFormats() {
	err := Newf(ErrCodeMalformedInput, "row %d is bad", 7)

	suite.Contains(err.Error(), "row 7 is bad")
}

func (suite *ErrorTestSuite) TestWrapPreservesCause() {
	cause := stderrors.New("disk on fire")
	err := Wrap(ErrCodeStorageWriteFailed, "failed to persist", cause)

	suite.True(stderrors.Is(err, cause))
	suite.Contains(err.Error(), "disk on fire")
	suite.Equal(ErrCodeStorageWriteFailed, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCodeThroughWrapping() {
	inner := New(ErrCodeMissingColumn, "no volume column")
	outer := Wrapf(ErrCodeDataSourceUnavailable, inner, "failed to load %s", "bars.csv")

	// The outermost code wins; the cause stays reachable via Unwrap.
	suite.True(HasCode(outer, ErrCodeDataSourceUnavailable))
	suite.False(HasCode(outer, ErrCodeMissingColumn))

	var coded *Error
	suite.True(As(stderrors.Unwrap(outer), &coded))
	suite.Equal(ErrCodeMissingColumn, coded.Code)
}

func (suite *ErrorTestSuite) TestGetCodePlainError() {
	suite.Equal(ErrCodeUnknown, GetCode(stderrors.New("plain")))
}
