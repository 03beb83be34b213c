package handlers

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	headerPageMax = "X-Page-Max"

	defaultPageLimit = 100
	maxPageLimit     = 1000
)

type PaginationQuery struct {
	Page  *uint `query:"page"`
	Limit *uint `query:"limit"`
}

// parsePagination 未指定分页参数时展示全部，page 从 1 开始
func (a *App) parsePagination(page *uint, limit *uint) (bool, int, int) {
	if page == nil && limit == nil {
		return true, -1, -1
	}
	if page != nil && *page == 0 && limit != nil && *limit == 0 {
		// 特殊参数：展示全部
		return true, -1, -1
	}
	// 映射前：第几页，每页限制多少个
	// 映射后：页减一，限制不变
	var parsedPage, parsedLimit uint

	if page == nil || *page < 1 {
		parsedPage = 0
	} else {
		parsedPage = *page - 1
	}

	if limit == nil || *limit == 0 {
		parsedLimit = defaultPageLimit
	} else if *limit > maxPageLimit {
		parsedLimit = maxPageLimit
	} else {
		parsedLimit = *limit
	}

	// 过大的页码截断，结果同样为空页
	if parsedPage > math.MaxInt32 {
		parsedPage = math.MaxInt32
	}

	return false, int(parsedPage), int(parsedLimit)
}

func (a *App) calcMaxPage(count int, showAll bool, limit int) int {
	if showAll {
		return 1
	}
	pageMax := count / limit
	if count%limit != 0 {
		pageMax++
	}
	return pageMax
}

// paginate 截取当前页并在响应头中写入总页数
func paginate[T any](a *App, c echo.Context, items []T) ([]T, error) {
	var q PaginationQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return nil, err
	}

	showAll, page, limit := a.parsePagination(q.Page, q.Limit)
	c.Response().Header().Set(headerPageMax, strconv.Itoa(a.calcMaxPage(len(items), showAll, limit)))
	if showAll {
		return items, nil
	}

	// 先比较页码再相乘，避免溢出
	if page >= a.calcMaxPage(len(items), false, limit) {
		return []T{}, nil
	}
	start := page * limit
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], nil
}
