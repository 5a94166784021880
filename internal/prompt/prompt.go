// Package prompt renders the few-shot SQL generation prompt.
//
// Build is a pure function: identical inputs produce byte-identical output,
// which keeps generation reproducible for a fixed example selection and
// lets tests assert on exact prompt text.
package prompt

import (
	"fmt"
	"strings"

	"github.com/sqlsage/sqlsage/internal/fewshot"
)

// prefixTemplate carries the dialect instructions. The %d verb receives the
// row-limit hint.
const prefixTemplate = `You are a PostgreSQL expert. Given an input question, first create a syntactically correct PostgreSQL query to run, then look at the results of the query and return the answer to the input question.
Unless the user specifies in the question a specific number of examples to obtain, query for at most %d results using the LIMIT clause as per PostgreSQL. You can order the results to return the most informative data in the database.
Never query for all columns from a table. You must query only the columns that are needed to answer the question. Wrap each column name in double quotes (") to denote them as delimited identifiers.
Pay attention to use only the column names you can see in the tables below. Be careful to not query for columns that do not exist. Also, pay attention to which column is in which table.
Pay attention to use CURRENT_DATE function to get the current date, if the question involves "today".

Use the following format:

Question: Question here
SQLQuery: SQL Query to run
SQLResult: Result of the SQLQuery
Answer: Final answer here

Provide no preamble`

// Build renders the complete generation prompt: the instruction prefix, one
// block per selected example in the order given, then the live schema and
// the question. Blocks are separated by blank lines, and the prompt ends at
// the "SQLQuery:" label so the model continues with bare SQL.
func Build(tableInfo, question string, topK int, examples []fewshot.Example) string {
	blocks := make([]string, 0, len(examples)+2)
	blocks = append(blocks, fmt.Sprintf(prefixTemplate, topK))
	for _, ex := range examples {
		blocks = append(blocks, exampleBlock(ex))
	}
	blocks = append(blocks, fmt.Sprintf("Only use the following tables:\n%s\n\nQuestion: %s\nSQLQuery:", tableInfo, question))
	return strings.Join(blocks, "\n\n")
}

// exampleBlock formats one worked example in the Question/SQLQuery/
// SQLResult/Answer layout the instructions promise.
func exampleBlock(ex fewshot.Example) string {
	return fmt.Sprintf("%s\n\nQuestion: %s\nSQLQuery: %s\nSQLResult: %s\nAnswer: %s",
		ex.TableInfo, ex.Input, ex.SQLCmd, ex.SQLResult, ex.Answer)
}
